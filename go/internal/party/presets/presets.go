// Package presets holds the static item pools used by preset-mode games.
// Pools ship with built-in defaults and can be replaced or extended from a
// YAML file at startup.
package presets

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Library maps category names to their item pools.
type Library struct {
	categories map[string][]string
}

// file is the on-disk YAML shape:
//
//	categories:
//	  celebrities:
//	    - Marie Curie
//	    - Elvis Presley
type file struct {
	Categories map[string][]string `yaml:"categories"`
}

// Builtin returns the library of bundled categories.
func Builtin() *Library {
	return &Library{categories: builtinCategories()}
}

// LoadFile reads a YAML pool file and merges it over the built-in
// categories. A category present in the file replaces the built-in pool of
// the same name.
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets file: %w", err)
	}

	merged := builtinCategories()
	for name, items := range f.Categories {
		if len(items) == 0 {
			return nil, fmt.Errorf("presets category %q has no items", name)
		}
		merged[name] = items
	}
	return &Library{categories: merged}, nil
}

// Items returns the item pool for a category.
func (l *Library) Items(category string) ([]string, bool) {
	items, ok := l.categories[category]
	return items, ok
}

// Has reports whether the category exists.
func (l *Library) Has(category string) bool {
	_, ok := l.categories[category]
	return ok
}

// Categories lists the known category names in sorted order.
func (l *Library) Categories() []string {
	names := make([]string, 0, len(l.categories))
	for name := range l.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtinCategories() map[string][]string {
	return map[string][]string{
		"celebrities": {
			"Marie Curie", "Elvis Presley", "Frida Kahlo", "Albert Einstein",
			"Serena Williams", "David Bowie", "Cleopatra", "Leonardo da Vinci",
			"Beyonce", "Charlie Chaplin", "Amelia Earhart", "Bruce Lee",
			"Audrey Hepburn", "Nikola Tesla", "Ella Fitzgerald", "Pele",
			"Jane Austen", "Muhammad Ali", "Billie Holiday", "Isaac Newton",
		},
		"fictional": {
			"Sherlock Holmes", "Darth Vader", "Hermione Granger", "James Bond",
			"Wonder Woman", "Homer Simpson", "Katniss Everdeen", "Gandalf",
			"Lara Croft", "Spider-Man", "Mary Poppins", "Indiana Jones",
			"Princess Leia", "Dracula", "Pippi Longstocking", "Batman",
			"Elsa", "Robin Hood", "Matilda", "Captain Ahab",
		},
		"animals": {
			"Penguin", "Octopus", "Red Panda", "Axolotl", "Narwhal",
			"Platypus", "Sloth", "Mantis Shrimp", "Capuchin Monkey", "Koala",
			"Snow Leopard", "Hummingbird", "Chameleon", "Orca", "Fennec Fox",
			"Armadillo", "Pufferfish", "Tasmanian Devil", "Quokka", "Lynx",
		},
		"professions": {
			"Astronaut", "Lighthouse Keeper", "Beekeeper", "Stunt Double",
			"Sommelier", "Air Traffic Controller", "Glassblower", "Cartographer",
			"Falconer", "Locksmith", "Puppeteer", "Ice Cream Taster",
			"Submarine Captain", "Wedding Planner", "Blacksmith", "Zookeeper",
			"Private Detective", "Opera Singer", "Treasure Hunter", "Clockmaker",
		},
	}
}
