package models

// InventoryRecord is the remote inventory entity. The client never owns it:
// every mutation is followed by a re-read.
type InventoryRecord struct {
	ID            string         `json:"id"`
	Images        []string       `json:"images"`
	InventoryData map[string]any `json:"inventory_data,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
}

// BatchSlot is the server's answer for one group of a batch initiation.
type BatchSlot struct {
	ID        string            `json:"id"`
	ImageURLs map[string]string `json:"image_urls"`
}

// RecordPatch is the PATCH body for an inventory record.
type RecordPatch struct {
	Images []string          `json:"images,omitempty"`
	Data   map[string]string `json:"data,omitempty"`
}

// UploadTarget is a pre-signed URL issued for adding one image to an
// existing record.
type UploadTarget struct {
	PresignedURL string `json:"presigned_url"`
	ContentType  string `json:"content_type"`
}

// ArchiveJob is the server-side batch job created for a zip upload.
type ArchiveJob struct {
	UploadURL string `json:"upload_url"`
}
