package googleplay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// imageUploadHost is the separate host the Developer API uses for binary
// media (listings/tracks stay on the JSON API host).
const imageUploadHost = "https://androidpublisher.googleapis.com/upload/androidpublisher/v3"

type imageResource struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	SHA1 string `json:"sha1"`
}

type imagesUploadResponse struct {
	Image imageResource `json:"image"`
}

// UploadImage uploads one image to an edit's locale-scoped image slot,
// identified by uploadType (phoneScreenshots, featureGraphic, icon, ...).
func (c *Client) UploadImage(ctx context.Context, edit *Edit, localeTag string, uploadType UploadType, data []byte, filename string) (imageResource, error) {
	if err := c.limit.Wait(ctx); err != nil {
		return imageResource{}, err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return imageResource{}, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return imageResource{}, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return imageResource{}, fmt.Errorf("write image bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return imageResource{}, fmt.Errorf("close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/applications/%s/edits/%s/listings/%s/%s", imageUploadHost, edit.PackageName, edit.ID, localeTag, string(uploadType))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return imageResource{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return imageResource{}, fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return imageResource{}, fmt.Errorf("image upload failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed imagesUploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return imageResource{}, fmt.Errorf("decode image upload response: %w", err)
	}
	return parsed.Image, nil
}

// DeleteImage deletes a single uploaded image by ID.
func (c *Client) DeleteImage(ctx context.Context, edit *Edit, localeTag string, uploadType UploadType, imageID string) error {
	path := fmt.Sprintf("/applications/%s/edits/%s/listings/%s/%s/%s", edit.PackageName, edit.ID, localeTag, string(uploadType), imageID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// DeleteAllImages deletes every uploaded image of uploadType for a locale.
func (c *Client) DeleteAllImages(ctx context.Context, edit *Edit, localeTag string, uploadType UploadType) error {
	path := fmt.Sprintf("/applications/%s/edits/%s/listings/%s/%s", edit.PackageName, edit.ID, localeTag, string(uploadType))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
