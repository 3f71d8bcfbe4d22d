package youtube

import "time"

// Video is the normalized listing entry used across feeds, search and
// trending. DurationSeconds is 0 when the API did not report a duration.
type Video struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Thumbnail       string    `json:"thumbnail"`
	ChannelID       string    `json:"channelId"`
	ChannelTitle    string    `json:"channelTitle"`
	PublishedAt     time.Time `json:"publishedAt"`
	DurationSeconds float64   `json:"durationSeconds"`
}

// Subscription is one subscribed channel.
type Subscription struct {
	ChannelID    string `json:"channelId"`
	ChannelTitle string `json:"channelTitle"`
	Thumbnail    string `json:"thumbnail"`
}
