package searchdata

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strconv"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// maxParallelParse bounds how many payload files are parsed at once
const maxParallelParse = 8

// SectionHit is a lookup result from one catalog section.
type SectionHit struct {
	Section     string       `json:"section"`
	Occurrences []Occurrence `json:"occurrences"`
}

// Catalog is the set of index sections Doxygen emits ("all", "functions",
// "classes", ...). Like Table it is immutable once built.
type Catalog struct {
	names    []string
	sections map[string]*Table
}

// NewCatalog builds a catalog. Sections are ordered by name.
func NewCatalog(sections map[string]*Table) *Catalog {
	c := &Catalog{
		names:    make([]string, 0, len(sections)),
		sections: make(map[string]*Table, len(sections)),
	}
	for name, t := range sections {
		c.names = append(c.names, name)
		c.sections[name] = t
	}
	sort.Strings(c.names)
	return c
}

// Sections returns the section names in order.
func (c *Catalog) Sections() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.names)
}

// Section returns the table for a section.
func (c *Catalog) Section(name string) (*Table, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.sections[name]
	return t, ok
}

// Lookup is Table.Lookup on one section. Unknown sections behave like absent keys.
func (c *Catalog) Lookup(section, key string) []Occurrence {
	t, ok := c.Section(section)
	if !ok {
		return []Occurrence{}
	}
	return t.Lookup(key)
}

// LookupAll looks key up in every section, returning hits in section order.
func (c *Catalog) LookupAll(key string) []SectionHit {
	hits := []SectionHit{}
	if c == nil {
		return hits
	}
	for _, name := range c.names {
		t := c.sections[name]
		if !t.Contains(key) {
			continue
		}
		hits = append(hits, SectionHit{Section: name, Occurrences: t.Lookup(key)})
	}
	return hits
}

// Len returns the total number of entries across sections.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, t := range c.sections {
		total += t.Len()
	}
	return total
}

type payloadFile struct {
	name    string
	section string
	shard   uint64
}

// payloadFiles lists the files matching pattern that look like payloads,
// sorted by section then shard.
func payloadFiles(fsys fs.FS, pattern string) ([]payloadFile, error) {
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var files []payloadFile
	for _, name := range matches {
		section, shard, ok := SectionFromFilename(name)
		if !ok {
			continue // search.js, searchdata.js and friends
		}
		n, err := strconv.ParseUint(shard, 16, 64)
		if err != nil {
			continue
		}
		files = append(files, payloadFile{name: name, section: section, shard: n})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].section != files[j].section {
			return files[i].section < files[j].section
		}
		return files[i].shard < files[j].shard
	})
	return files, nil
}

// LoadFS parses every payload file in fsys matching pattern and groups the
// shards by section. Each file is validated before it is merged.
func LoadFS(ctx context.Context, fsys fs.FS, pattern string) (*Catalog, error) {
	files, err := payloadFiles(fsys, pattern)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no search data files match %q", pattern)
	}

	tables := make([]*Table, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelParse)

	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			file, err := fsys.Open(f.name)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", f.name, err)
			}
			defer file.Close()

			entries, err := ParseScript(file)
			if err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
			if err := Validate(entries); err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
			tables[i] = New(entries)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	shards := make(map[string][]*Table)
	for i, f := range files {
		shards[f.section] = append(shards[f.section], tables[i])
	}
	sections := make(map[string]*Table, len(shards))
	for name, parts := range shards {
		if len(parts) == 1 {
			sections[name] = parts[0]
			continue
		}
		sections[name] = Merge(parts...)
	}
	return NewCatalog(sections), nil
}

// Fingerprint digests the names and contents of the payload files LoadFS
// would read. It changes whenever the generator output changes.
func Fingerprint(fsys fs.FS, pattern string) (digest.Digest, error) {
	files, err := payloadFiles(fsys, pattern)
	if err != nil {
		return "", err
	}

	digester := digest.Canonical.Digester()
	h := digester.Hash()
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f.name)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", f.name, err)
		}
		fmt.Fprintf(h, "%s\x00%d\x00", path.Base(f.name), len(data))
		h.Write(data)
	}
	return digester.Digest(), nil
}
