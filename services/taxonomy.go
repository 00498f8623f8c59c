package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
	"github.com/esa0624/CU-Blueboard/utils"
)

var defaultTopics = []string{
	"Academics",
	"Campus Life",
	"Housing",
	"Dining",
	"Clubs",
	"Career",
	"Miscellaneous",
}

var defaultTags = []string{
	"Question",
	"Advice",
	"Discussion",
	"Announcement",
	"Lost & Found",
	"Events",
	"Course Review",
}

// SeedTaxonomy makes sure the default topics and tags exist.
// Safe to run on every boot.
func SeedTaxonomy(db *gorm.DB) error {
	for _, name := range defaultTopics {
		topic := models.Topic{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&topic).Error; err != nil {
			return err
		}
	}
	for _, name := range defaultTags {
		tag := models.Tag{Name: name, Slug: slugify(name)}
		if err := db.Where("slug = ?", tag.Slug).FirstOrCreate(&tag).Error; err != nil {
			return err
		}
	}
	// The vocabulary endpoints cache their responses; a fresh seed may have
	// added entries, so drop the cached copies.
	utils.InvalidateByPrefix("cache:")
	return nil
}

func slugify(name string) string {
	s := strings.ToLower(name)
	var b strings.Builder
	prevDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash && b.Len() > 0 {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
