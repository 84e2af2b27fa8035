package handlers

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// allowedExt is the set of upload extensions kept as-is; anything else
// is stored with a .bin suffix.
var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".pdf": true, ".txt": true, ".doc": true, ".docx": true,
}

type UploadHandler struct {
	dir      string
	maxFiles int
}

func NewUploadHandler(dir string, maxFiles int) *UploadHandler {
	return &UploadHandler{dir: dir, maxFiles: maxFiles}
}

type fileInfo struct {
	URL      string `json:"url"`
	Kind     string `json:"type,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type uploadResponse struct {
	Files []fileInfo `json:"files"`
}

// Upload stores multipart files on disk and returns the URLs the
// client attaches to messages.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return JSONError(c, fiber.StatusBadRequest, "multipart form required")
	}
	files := form.File["files"]
	if len(files) == 0 || len(files) > h.maxFiles {
		return JSONError(c, fiber.StatusBadRequest, "too many files or none at all")
	}
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return JSONError(c, fiber.StatusInternalServerError, "could not store files")
	}

	out := make([]fileInfo, 0, len(files))
	for _, f := range files {
		if f.Filename == "" || f.Size == 0 {
			return JSONError(c, fiber.StatusBadRequest, "empty attachment")
		}
		name := safeName(f.Filename)
		if err := c.SaveFile(f, filepath.Join(h.dir, name)); err != nil {
			return JSONError(c, fiber.StatusInternalServerError, "could not store files")
		}
		out = append(out, fileInfo{
			URL:      "/api/uploads/" + name,
			Kind:     mime.TypeByExtension(filepath.Ext(f.Filename)),
			Filename: f.Filename,
		})
	}
	return c.JSON(uploadResponse{Files: out})
}

// safeName keeps only the (allow-listed) extension of the original
// name; the stored name itself is a fresh uuid so uploads can never
// collide or traverse paths.
func safeName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !allowedExt[ext] {
		ext = ".bin"
	}
	return strings.ReplaceAll(uuid.New().String(), "-", "") + ext
}
