package catalog

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseYAML reads a directory definition:
//
//	title: My Hub
//	categories:
//	  - id: dev
//	    name: Development
//	    cards:
//	      - id: gh
//	        title: GitHub
//	        description: Code hosting
//	        link: https://github.com
func ParseYAML(r io.Reader) (*Directory, error) {
	var doc struct {
		Title      string     `yaml:"title"`
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog: parse yaml: %w", err)
	}
	return New(doc.Title, doc.Categories)
}
