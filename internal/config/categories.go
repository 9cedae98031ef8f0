package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

// DefaultCategories is used when no categories file is configured.
var DefaultCategories = []model.Category{
	{Name: "Mais vendidos", URL: "https://www.amazon.com.br/gp/bestsellers"},
	{Name: "Eletrônicos", URL: "https://www.amazon.com.br/gp/bestsellers/electronics"},
	{Name: "Livros", URL: "https://www.amazon.com.br/gp/bestsellers/books"},
	{Name: "Casa", URL: "https://www.amazon.com.br/gp/bestsellers/home"},
	{Name: "Games", URL: "https://www.amazon.com.br/gp/bestsellers/videogames"},
}

type categoriesFile struct {
	Categories []model.Category `yaml:"categories"`
}

// LoadCategories reads a YAML file of the form:
//
//	categories:
//	  - name: Eletrônicos
//	    url: https://www.amazon.com.br/gp/bestsellers/electronics
//
// An empty path returns DefaultCategories.
func LoadCategories(path string) ([]model.Category, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return append([]model.Category(nil), DefaultCategories...), nil
	}

	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}
	return ParseCategories(raw)
}

func ParseCategories(raw []byte) ([]model.Category, error) {
	var f categoriesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	out := make([]model.Category, 0, len(f.Categories))
	for i, c := range f.Categories {
		name := strings.TrimSpace(c.Name)
		url := strings.TrimSpace(c.URL)
		if name == "" || url == "" {
			return nil, fmt.Errorf("category %d: name and url are required", i)
		}
		lower := strings.ToLower(url)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			return nil, fmt.Errorf("category %q: url must be http(s)", name)
		}
		out = append(out, model.Category{Name: name, URL: url})
	}
	return out, nil
}
