package models

import (
	"slices"
	"time"
)

// Campaign — благотворительная кампания. Likes всегда равно len(LikedBy).
type Campaign struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	GoalAmount  int       `json:"goalAmount,omitempty"`
	URL         string    `json:"url,omitempty"`
	Likes       int       `json:"likes"`
	LikedBy     []string  `json:"likedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToggleLike ставит или снимает отметку пользователя и возвращает новое состояние.
func (c *Campaign) ToggleLike(email string) bool {
	if i := slices.Index(c.LikedBy, email); i >= 0 {
		c.LikedBy = slices.Delete(c.LikedBy, i, i+1)
		c.Likes = len(c.LikedBy)
		return false
	}
	c.LikedBy = append(c.LikedBy, email)
	c.Likes = len(c.LikedBy)
	return true
}
