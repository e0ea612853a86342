package core

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"astor/models"
)

// SetTags replaces the page's tag set. Names are normalized to lowercase
// and deduplicated, so "Astor" and "astor" collapse into one stored tag.
func (s *Service) SetTags(page *models.Page, names []string) error {
	normalized := normalizeTagNames(names)

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("page_id = ?", page.ID).Delete(&models.PageTag{}).Error; err != nil {
			return err
		}

		for _, name := range normalized {
			var tag models.Tag
			err := tx.Where("name = ?", name).First(&tag).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				tag = models.Tag{Name: name, Slug: Slugify(name)}
				if err := tx.Create(&tag).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			if err := tx.Create(&models.PageTag{PageID: page.ID, TagID: tag.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// TagsFor returns the page's tags in name order.
func (s *Service) TagsFor(page *models.Page) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.Table("tags").
		Joins("INNER JOIN page_tags ON tags.id = page_tags.tag_id").
		Where("page_tags.page_id = ?", page.ID).
		Order("tags.name ASC").
		Find(&tags).Error
	return tags, err
}

// TagString renders the page's tags as a comma-separated edit string.
func (s *Service) TagString(page *models.Page) string {
	tags, err := s.TagsFor(page)
	if err != nil || len(tags) == 0 {
		return ""
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

func normalizeTagNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Slugify builds a URL-safe slug: accents stripped, lowercased, spaces
// turned into single hyphens.
func Slugify(title string) string {
	accentMap := map[rune]rune{
		'á': 'a', 'à': 'a', 'ã': 'a', 'â': 'a', 'ä': 'a', 'å': 'a', 'ā': 'a',
		'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e',
		'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i',
		'ó': 'o', 'ò': 'o', 'õ': 'o', 'ô': 'o', 'ö': 'o', 'ø': 'o', 'ō': 'o',
		'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u',
		'ç': 'c', 'ć': 'c', 'č': 'c',
		'ñ': 'n', 'ń': 'n',
		'ý': 'y', 'ÿ': 'y',
		'ß': 's',
	}

	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		if replacement, exists := accentMap[r]; exists {
			return replacement
		}
		return r
	}, slug)

	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		if r == ' ' {
			return '-'
		}
		return -1
	}, slug)

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return slug
}
