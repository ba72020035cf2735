package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// SanitizeModelName turns a hub name like "org/model" into a directory name.
func SanitizeModelName(modelName string) string {
	return strings.ReplaceAll(modelName, "/", "_")
}

// PrepareModel downloads the model into modelDir if it doesn't exist and returns the model path
func PrepareModel(modelDir string, modelName string, onnxFilePath string) (string, error) {
	if modelName == "" {
		return "", fmt.Errorf("model name is empty")
	}
	if modelDir == "" {
		modelDir = "./models"
	}
	modelPath := filepath.Join(modelDir, SanitizeModelName(modelName))

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(modelDir, 0750); err != nil {
			return "", fmt.Errorf("failed to create model directory: %w", err)
		}
		downloadOptions := hugot.NewDownloadOptions()
		if onnxFilePath != "" {
			downloadOptions.OnnxFilePath = onnxFilePath
		}
		downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
		if err != nil {
			return "", fmt.Errorf("failed to download model: %w", err)
		}
		modelPath = downloadedPath
	}

	return modelPath, nil
}
