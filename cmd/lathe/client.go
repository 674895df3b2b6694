package main

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"lathe/internal/api"
	"lathe/internal/storage"
)

// apiClient is a thin HTTP client for the lathed API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// Submit uploads the given image files as one batch.
func (c *apiClient) Submit(mode string, paths []string) (api.SubmitResponse, error) {
	var out api.SubmitResponse

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeSubmitBody(mw, mode, paths)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	resp, err := c.http.Post(c.baseURL+"/jobs", mw.FormDataContentType(), pr)
	if err != nil {
		return out, fmt.Errorf("submit: %w", err)
	}
	return out, decodeResponse(resp, &out)
}

func writeSubmitBody(mw *multipart.Writer, mode string, paths []string) error {
	if mode != "" {
		if err := mw.WriteField("mode", mode); err != nil {
			return err
		}
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open image %s: %w", path, err)
		}
		part, err := mw.CreateFormFile("images", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return fmt.Errorf("upload image %s: %w", path, err)
		}
	}
	return nil
}

// Status fetches the polling snapshot for a job.
func (c *apiClient) Status(jobID string) (api.StatusResponse, error) {
	var out api.StatusResponse
	resp, err := c.http.Get(fmt.Sprintf("%s/jobs/%s/status", c.baseURL, jobID))
	if err != nil {
		return out, fmt.Errorf("status: %w", err)
	}
	return out, decodeResponse(resp, &out)
}

// List fetches all known jobs.
func (c *apiClient) List() (api.ListResponse, error) {
	var out api.ListResponse
	resp, err := c.http.Get(c.baseURL + "/jobs")
	if err != nil {
		return out, fmt.Errorf("list jobs: %w", err)
	}
	return out, decodeResponse(resp, &out)
}

// Health fetches the daemon health report.
func (c *apiClient) Health() (api.HealthResponse, error) {
	var out api.HealthResponse
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return out, fmt.Errorf("health: %w", err)
	}
	return out, decodeResponse(resp, &out)
}

// Download saves the job artifact to destDir and returns the written path.
func (c *apiClient) Download(jobID, destDir string) (string, error) {
	resp, err := c.http.Get(fmt.Sprintf("%s/jobs/%s/download", c.baseURL, jobID))
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	target := filepath.Join(destDir, jobID+storage.ArtifactExt)
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(target)
		return "", fmt.Errorf("save artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("save artifact: %w", err)
	}
	return target, nil
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon: %s", payload.Error)
	}
	return fmt.Errorf("daemon returned status %d", resp.StatusCode)
}
