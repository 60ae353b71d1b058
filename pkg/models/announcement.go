package models

// Announcement is one entry of a company's announcements feed.
type Announcement struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	URL    string `json:"url,omitempty"` // empty when the entry had no link target
}
