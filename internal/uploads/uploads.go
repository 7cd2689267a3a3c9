package uploads

import (
	"context"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const productFolder = "products"

// ImageStore is the external image storage capability: upload a base64 data
// URI, get back a durable URL; destroy by public id on product deletion.
type ImageStore interface {
	Upload(ctx context.Context, base64Image string) (string, error)
	Destroy(ctx context.Context, publicID string) error
}

type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStore(url string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	return &CloudinaryStore{cld: cld}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, base64Image string) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, base64Image, uploader.UploadParams{
		Folder: productFolder,
	})
	if err != nil {
		return "", err
	}
	return result.SecureURL, nil
}

func (s *CloudinaryStore) Destroy(ctx context.Context, publicID string) error {
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	return err
}

// PublicIDFromURL derives the store-side public id from a delivery URL, e.g.
// ".../products/abc123.png" -> "products/abc123". Empty input yields empty.
func PublicIDFromURL(imageURL string) string {
	trimmed := strings.TrimSpace(imageURL)
	if trimmed == "" {
		return ""
	}

	base := path.Base(trimmed)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	if base == "" || base == "/" || base == "." {
		return ""
	}
	return productFolder + "/" + base
}
