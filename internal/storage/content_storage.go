package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

var (
	ErrTooLarge        = errors.New("storage: file exceeds upload limit")
	ErrUnsupportedType = errors.New("storage: unsupported file type")
)

// Типы, которые принимает контент-библиотека: фото, видео и документы-брифы.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"image/heif":      true,
	"video/mp4":       true,
	"video/quicktime": true,
	"video/webm":      true,
	"application/pdf": true,
}

// Detected - реальный тип файла по магическим байтам.
type Detected struct {
	MIME      string
	Extension string
}

// ContentStorage хранит файлы контент-библиотеки на диске, по каталогу на бренд.
type ContentStorage struct {
	rootPath       string
	maxUploadBytes int64
}

func NewContentStorage(rootPath string, maxUploadMB int64) (*ContentStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &ContentStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

func (s *ContentStorage) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Detect читает заголовок файла и возвращает позицию чтения в начало.
func (s *ContentStorage) Detect(r io.ReadSeeker) (Detected, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Detected{}, fmt.Errorf("storage: не удалось прочитать файл: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Detected{}, fmt.Errorf("storage: не удалось сбросить позицию файла: %w", err)
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown || !allowedMimeTypes[kind.MIME.Value] {
		return Detected{}, ErrUnsupportedType
	}
	return Detected{MIME: kind.MIME.Value, Extension: kind.Extension}, nil
}

// Save пишет файл через временный и возвращает путь относительно корня хранилища.
func (s *ContentStorage) Save(ctx context.Context, brandID uuid.UUID, originalName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	name := sanitizeFilename(originalName)
	fileName := fmt.Sprintf("%d_%s", time.Now().UnixNano(), name)

	dir := filepath.Join(s.rootPath, brandID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать каталог бренда: %w", err)
	}

	target := filepath.Join(dir, fileName)
	tmp := target + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, &io.LimitedReader{R: r, N: s.maxUploadBytes + 1})
	if err != nil {
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tmp)
		return "", 0, ErrTooLarge
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return filepath.ToSlash(filepath.Join(brandID.String(), fileName)), written, nil
}

func (s *ContentStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(s.rootPath, filepath.FromSlash(relativePath))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		name = "file"
	}
	return name
}
