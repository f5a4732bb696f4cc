package ibus

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Component describes the IBus component file that lets ibus-daemon
// launch the engine.
type Component struct {
	BusName    string
	EngineName string
	Exec       string
	Layout     string
	Version    string
}

type componentXML struct {
	XMLName     xml.Name    `xml:"component"`
	Name        string      `xml:"name"`
	Description string      `xml:"description"`
	Exec        string      `xml:"exec"`
	Version     string      `xml:"version"`
	Author      string      `xml:"author"`
	License     string      `xml:"license"`
	TextDomain  string      `xml:"textdomain"`
	Engines     []engineXML `xml:"engines>engine"`
}

type engineXML struct {
	Name        string `xml:"name"`
	Language    string `xml:"language"`
	License     string `xml:"license"`
	Author      string `xml:"author"`
	Layout      string `xml:"layout"`
	LongName    string `xml:"longname"`
	Description string `xml:"description"`
	Rank        int    `xml:"rank"`
	Symbol      string `xml:"symbol"`
}

// Marshal renders the component file.
func (c Component) Marshal() ([]byte, error) {
	if c.BusName == "" || c.EngineName == "" || c.Exec == "" {
		return nil, errors.New("ibus: component needs bus name, engine name and exec")
	}
	layout := c.Layout
	if layout == "" {
		layout = "us"
	}
	version := c.Version
	if version == "" {
		version = "dev"
	}

	doc := componentXML{
		Name:        c.BusName,
		Description: "Composing input method",
		Exec:        c.Exec + " -ibus",
		Version:     version,
		Author:      "composed",
		License:     "MIT",
		TextDomain:  "composed",
		Engines: []engineXML{{
			Name:        c.EngineName,
			Language:    "other",
			License:     "MIT",
			Author:      "composed",
			Layout:      layout,
			LongName:    "Composed",
			Description: "Word completion and dead-key composition",
			Rank:        50,
			Symbol:      "C",
		}},
	}

	out, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal component: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// Install writes the component file to path, creating its directory.
func (c Component) Install(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create component dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write component: %w", err)
	}
	return nil
}

// Uninstall removes the component file. A missing file is not an error.
func Uninstall(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove component: %w", err)
	}
	return nil
}
