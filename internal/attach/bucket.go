// Package attach manages pending file uploads for one edit session.
// Files queue in purpose-scoped buckets keyed by the normalized category
// prefix; already-persisted attachments never pass through here. Actual
// upload happens in the submission request — this package only decides
// which in-memory lists accompany it.
package attach

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/helloakshay27/hi-society-assets/internal/category"
)

// Bucket purpose suffixes. A full bucket key is the category's
// attachment key plus one of these, e.g. "vehicleManualsUpload".
const (
	SuffixAssetImage       = "AssetImage"
	SuffixManualsUpload    = "ManualsUpload"
	SuffixInsuranceDetails = "InsuranceDetails"
	SuffixPurchaseInvoice  = "PurchaseInvoice"
	SuffixOtherDocuments   = "OtherDocuments"
	SuffixAmcDocuments     = "AmcDocuments"
	SuffixCategoryUploads  = "CategoryAttachments"
)

// BucketKey composes the full bucket key for a category and purpose.
func BucketKey(c category.Category, suffix string) string {
	return category.AttachmentKey(c) + suffix
}

// PendingFile is one in-memory file queued for upload.
type PendingFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
	Size        int    `json:"size"`
	Compressed  bool   `json:"compressed"`
}

// NewPendingFile wraps raw bytes as a queued file with a fresh handle id.
func NewPendingFile(name, contentType string, data []byte) PendingFile {
	return PendingFile{
		ID:          uuid.New().String(),
		Name:        name,
		ContentType: contentType,
		Data:        data,
		Size:        len(data),
	}
}

// Set holds all pending-upload buckets for one edit session.
type Set struct {
	mu      sync.RWMutex
	buckets map[string][]PendingFile
}

// NewSet creates an empty bucket set.
func NewSet() *Set {
	return &Set{buckets: make(map[string][]PendingFile)}
}

// Add queues a file into the named bucket.
func (s *Set) Add(bucket string, f PendingFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucket] = append(s.buckets[bucket], f)
}

// Remove drops a queued file by handle id. Returns false when no bucket
// holds the id.
func (s *Set) Remove(bucket, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := s.buckets[bucket]
	for i, f := range files {
		if f.ID == id {
			s.buckets[bucket] = append(files[:i:i], files[i+1:]...)
			return true
		}
	}
	return false
}

// Files returns the queued files of one bucket in insertion order.
func (s *Set) Files(bucket string) []PendingFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PendingFile(nil), s.buckets[bucket]...)
}

// HasFiles reports whether any bucket holds a pending upload. An empty
// result means the submission can go out as plain JSON.
func (s *Set) HasFiles() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, files := range s.buckets {
		if len(files) > 0 {
			return true
		}
	}
	return false
}

// CategoryFiles is the projection of a category's buckets onto the
// upload field names the backend expects.
type CategoryFiles struct {
	AssetImage        []PendingFile `json:"asset_image"`
	AssetManuals      []PendingFile `json:"asset_manuals"`
	AssetInsurances   []PendingFile `json:"asset_insurances"`
	AssetPurchases    []PendingFile `json:"asset_purchases"`
	AssetOtherUploads []PendingFile `json:"asset_other_uploads"`
	AmcDocuments      []PendingFile `json:"amc_documents"`
	CategoryUploads   []PendingFile `json:"category_attachments"`
}

// Parts lists the non-empty upload fields in submission order.
func (c CategoryFiles) Parts() []struct {
	Field string
	Files []PendingFile
} {
	all := []struct {
		Field string
		Files []PendingFile
	}{
		{"asset_image", c.AssetImage},
		{"asset_manuals", c.AssetManuals},
		{"asset_insurances", c.AssetInsurances},
		{"asset_purchases", c.AssetPurchases},
		{"asset_other_uploads", c.AssetOtherUploads},
		{"amc_documents", c.AmcDocuments},
		{"category_attachments", c.CategoryUploads},
	}
	var out []struct {
		Field string
		Files []PendingFile
	}
	for _, p := range all {
		if len(p.Files) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// CategoryAttachments projects the buckets belonging to one category
// onto the backend upload fields. Pure projection, no mutation.
func CategoryAttachments(c category.Category, s *Set) (CategoryFiles, error) {
	if !category.Valid(c) {
		return CategoryFiles{}, fmt.Errorf("unknown category %q", c)
	}
	return CategoryFiles{
		AssetImage:        s.Files(BucketKey(c, SuffixAssetImage)),
		AssetManuals:      s.Files(BucketKey(c, SuffixManualsUpload)),
		AssetInsurances:   s.Files(BucketKey(c, SuffixInsuranceDetails)),
		AssetPurchases:    s.Files(BucketKey(c, SuffixPurchaseInvoice)),
		AssetOtherUploads: s.Files(BucketKey(c, SuffixOtherDocuments)),
		AmcDocuments:      s.Files(BucketKey(c, SuffixAmcDocuments)),
		CategoryUploads:   s.Files(BucketKey(c, SuffixCategoryUploads)),
	}, nil
}
