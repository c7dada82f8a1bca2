package image

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pet-story-server-go/src/core/utils"

	"github.com/google/uuid"
)

// TempStager 为需要文件路径的提供者暂存上传图片
type TempStager struct {
	tempDir string
	logger  *utils.Logger
}

// NewTempStager 创建暂存器，tempDir 为空时使用系统临时目录
func NewTempStager(tempDir string, logger *utils.Logger) (*TempStager, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0700); err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %v", err)
	}
	return &TempStager{
		tempDir: tempDir,
		logger:  logger,
	}, nil
}

// Stage 把图片写入唯一的临时文件，返回路径和清理函数。
// 调用方必须在所有退出路径上调用 cleanup；写入失败时文件已被删除。
func (s *TempStager) Stage(asset UploadedAsset) (string, func(), error) {
	tempPath := filepath.Join(s.tempDir, "pet-upload-"+uuid.New().String()+fileExtension(asset.FileName))

	cleanup := func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("删除临时文件失败", map[string]interface{}{
				"path":  tempPath,
				"error": err.Error(),
			})
			return
		}
		s.logger.Debug("临时文件已清理", map[string]interface{}{"path": tempPath})
	}

	if err := os.WriteFile(tempPath, asset.Data, 0600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("写入临时文件失败: %w", err)
	}

	s.logger.Debug("图片已暂存", map[string]interface{}{
		"path":      tempPath,
		"file_name": asset.FileName,
		"size":      len(asset.Data),
	})
	return tempPath, cleanup, nil
}

// fileExtension 取文件扩展名，没有时用 .tmp
func fileExtension(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if ext == "" || ext == "." || ext == base {
		return ".tmp"
	}
	return strings.ToLower(ext)
}
