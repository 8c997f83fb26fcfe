package enums

import (
	"fmt"
	"strings"
)

// MediaCategory is the optional hint sent with INIT telling the server how the media will be used.
type MediaCategory string

const (
	MediaCategoryNone       MediaCategory = ""
	MediaCategoryDMImage    MediaCategory = "dm_image"
	MediaCategoryDMVideo    MediaCategory = "dm_video"
	MediaCategoryDMGif      MediaCategory = "dm_gif"
	MediaCategoryTweetImage MediaCategory = "tweet_image"
	MediaCategoryTweetVideo MediaCategory = "tweet_video"
	MediaCategoryTweetGif   MediaCategory = "tweet_gif"
)

var validMediaCategories = []MediaCategory{
	MediaCategoryDMImage,
	MediaCategoryDMVideo,
	MediaCategoryDMGif,
	MediaCategoryTweetImage,
	MediaCategoryTweetVideo,
	MediaCategoryTweetGif,
}

// String returns the literal string for the category.
func (c MediaCategory) String() string {
	return string(c)
}

// IsValid reports whether the category is known. The empty category is valid and means "no hint".
func (c MediaCategory) IsValid() bool {
	if c == MediaCategoryNone {
		return true
	}
	for _, candidate := range validMediaCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseMediaCategory converts raw input into a MediaCategory.
func ParseMediaCategory(value string) (MediaCategory, error) {
	clean := strings.ToLower(strings.TrimSpace(value))
	if clean == "" {
		return MediaCategoryNone, nil
	}
	for _, candidate := range validMediaCategories {
		if string(candidate) == clean {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media category %q", value)
}
