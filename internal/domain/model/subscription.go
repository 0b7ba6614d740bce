package model

import "time"

// Subscription maps one client name to a published remote file and its public
// download URL. ID is the identity; Name is a display label and is not
// required to be unique. RemoteFileID is stable for the lifetime of the
// subscription; only the remote file's contents change on refresh.
type Subscription struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	RemoteFileID string    `json:"file_id"`
	DownloadURL  string    `json:"download_url"`
}
