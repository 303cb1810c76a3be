package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Price accepts both JSON numbers and numeric strings; the menu endpoint
// sends prices as strings while admin endpoints send numbers.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid price %q", s)
		}
		*p = Price(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid price %s", string(data))
	}
	*p = Price(f)
	return nil
}

func (p Price) Float() float64 { return float64(p) }

type MenuItem struct {
	ID          int    `json:"id"`
	CategoryID  int    `json:"categoryId,omitempty"`
	Name        string `json:"name"`
	Price       Price  `json:"price"`
	IsAvailable bool   `json:"isAvailable"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// DisplayImageURL drops any cache-busting query string so the image can be
// cached, and falls back to the bundled /menu-images/<id>.jpg asset.
func (m MenuItem) DisplayImageURL() string {
	return DisplayImageURL(m.ImageURL, m.ID)
}

func DisplayImageURL(url string, fallbackID int) string {
	if url == "" {
		return fmt.Sprintf("/menu-images/%d.jpg", fallbackID)
	}
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

type Category struct {
	ID    int        `json:"id"`
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// Menu is the body of GET /menu?table=<n>.
type Menu struct {
	Categories []Category `json:"categories"`
}

// Validate rejects a menu payload whose categories list is missing.
func (m *Menu) Validate() error {
	if m == nil || m.Categories == nil {
		return fmt.Errorf("invalid menu data")
	}
	for _, c := range m.Categories {
		if c.Items == nil {
			continue
		}
		for _, it := range c.Items {
			if it.ID == 0 {
				return fmt.Errorf("invalid menu data: item without id in category %q", c.Name)
			}
		}
	}
	return nil
}

// FindItem looks an item up across all categories.
func (m *Menu) FindItem(id int) (MenuItem, bool) {
	for _, c := range m.Categories {
		for _, it := range c.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return MenuItem{}, false
}

// DefaultCategoryID is the category selected when the menu first renders.
func (m *Menu) DefaultCategoryID() (int, bool) {
	if len(m.Categories) == 0 {
		return 0, false
	}
	return m.Categories[0].ID, true
}
