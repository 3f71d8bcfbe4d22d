package youtube

import "time"

// Wire shapes for the Data API responses, trimmed to the fields we read.

type thumbnails struct {
	Default struct {
		URL string `json:"url"`
	} `json:"default"`
	Medium struct {
		URL string `json:"url"`
	} `json:"medium"`
	High struct {
		URL string `json:"url"`
	} `json:"high"`
}

func pickThumbnail(t thumbnails) string {
	if t.High.URL != "" {
		return t.High.URL
	}
	if t.Medium.URL != "" {
		return t.Medium.URL
	}
	return t.Default.URL
}

type subscriptionsResponse struct {
	Items []struct {
		Snippet struct {
			Title      string     `json:"title"`
			Thumbnails thumbnails `json:"thumbnails"`
			ResourceID struct {
				ChannelID string `json:"channelId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string     `json:"title"`
			Description  string     `json:"description"`
			ChannelID    string     `json:"channelId"`
			ChannelTitle string     `json:"channelTitle"`
			PublishedAt  time.Time  `json:"publishedAt"`
			Thumbnails   thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (r videosResponse) videos() []Video {
	out := make([]Video, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, Video{
			ID:              it.ID,
			Title:           it.Snippet.Title,
			Description:     it.Snippet.Description,
			Thumbnail:       pickThumbnail(it.Snippet.Thumbnails),
			ChannelID:       it.Snippet.ChannelID,
			ChannelTitle:    it.Snippet.ChannelTitle,
			PublishedAt:     it.Snippet.PublishedAt,
			DurationSeconds: ParseDuration(it.ContentDetails.Duration),
		})
	}
	return out
}
