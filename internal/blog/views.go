// Package blog holds the post rules that are independent of storage and transport:
// view deduplication, comment moderation, validation and read time.
package blog

import (
	"time"

	"github.com/insightsphere/insightsphere/internal/model"
)

const (
	// ViewWindow is how long a viewer is remembered before a repeat view counts again.
	ViewWindow = 30 * time.Minute
	// ViewerRetention bounds how long viewer records are kept on a post.
	ViewerRetention = 7 * 24 * time.Hour
)

// ShouldCountView reports whether a view by id at now is new for post.
// Authenticated identities match on user id only, anonymous ones on IP only.
func ShouldCountView(post model.Post, id model.Identity, now time.Time) bool {
	cutoff := now.Add(-ViewWindow)
	for _, v := range post.Viewers {
		if !sameViewer(v, id) {
			continue
		}
		if v.ViewedAt.After(cutoff) {
			return false
		}
	}
	return true
}

// RecordView appends the viewer, bumps the counter and drops records older than
// ViewerRetention. Call it only after ShouldCountView returned true.
func RecordView(post *model.Post, id model.Identity, now time.Time) {
	v := model.Viewer{ViewedAt: now}
	if id.Anonymous() {
		v.IP = id.IP
	} else {
		v.UserID = id.UserID
	}
	post.Viewers = append(post.Viewers, v)
	post.Views++

	cutoff := now.Add(-ViewerRetention)
	kept := post.Viewers[:0]
	for _, v := range post.Viewers {
		if v.ViewedAt.After(cutoff) {
			kept = append(kept, v)
		}
	}
	post.Viewers = kept
}

func sameViewer(v model.Viewer, id model.Identity) bool {
	if id.Anonymous() {
		return v.UserID == 0 && v.IP == id.IP
	}
	return v.UserID == id.UserID
}
