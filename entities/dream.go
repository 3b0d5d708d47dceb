package entities

import (
	"dreamreel/constant"
	"github.com/google/uuid"
	"time"
	"unicode/utf8"
)

// StructuredDream is the semi-structured summary produced by the structuring step.
// No key is guaranteed to be present.
type StructuredDream map[string]any

type Dream struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	UserTitle      *string         `json:"user_title" gorm:"type:varchar(255)"`
	AITitle        string          `json:"ai_title" gorm:"type:varchar(255);not null"`
	AIDescription  string          `json:"ai_description" gorm:"type:text"`
	TranscriptRaw  string          `json:"transcript_raw" gorm:"type:text;not null"`
	TranscriptJSON StructuredDream `json:"transcript_json" gorm:"type:jsonb;serializer:json"`
	VideoURL       string          `json:"video_url" gorm:"type:text;not null"`
	VideoThumbnail *string         `json:"video_thumbnail" gorm:"type:text"`
	CreatedAt      time.Time       `json:"created_at" gorm:"type:timestamptz;not null;index:idx_dreams_created_at,sort:desc"`
	Emojis         []string        `json:"emojis" gorm:"type:jsonb;serializer:json"`
}

func (Dream) TableName() string {
	return "dreams"
}

// DisplayTitle prefers the user's title over the generated one.
func (d Dream) DisplayTitle() string {
	if d.UserTitle != nil && *d.UserTitle != "" {
		return *d.UserTitle
	}
	if d.AITitle != "" {
		return d.AITitle
	}
	return constant.UntitledDream
}

// Thumbnail returns the stored thumbnail or the static placeholder.
func (d Dream) Thumbnail() string {
	if d.VideoThumbnail != nil && *d.VideoThumbnail != "" {
		return *d.VideoThumbnail
	}
	return constant.PlaceholderThumbnail
}

// DreamPatch holds the fields a client may change after creation.
type DreamPatch struct {
	UserTitle *string `json:"user_title"`
}

var (
	titleKeys       = []string{"title", "dream_title", "name"}
	descriptionKeys = []string{"description", "summary"}
)

const descriptionFallbackRunes = 200

func (s StructuredDream) Title() string {
	if v := s.firstString(titleKeys); v != "" {
		return v
	}
	return constant.UntitledDream
}

// Description falls back to the head of the transcript when the summary has none.
func (s StructuredDream) Description(transcript string) string {
	if v := s.firstString(descriptionKeys); v != "" {
		return v
	}
	if utf8.RuneCountInString(transcript) <= descriptionFallbackRunes {
		return transcript
	}
	return string([]rune(transcript)[:descriptionFallbackRunes]) + "…"
}

func (s StructuredDream) firstString(keys []string) string {
	for _, k := range keys {
		if v, ok := s[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
