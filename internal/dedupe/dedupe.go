package dedupe

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/hbollon/go-edlib"

	"crate/internal/catalog"
	"crate/internal/logging"
	"crate/internal/quality"
	"crate/internal/services"
	"crate/internal/textnorm"
)

const (
	// Titles at or above this Jaro-Winkler similarity are treated as the
	// same recording when their durations also agree.
	defaultSimilarityThreshold = 0.90
	// Maximum duration difference, in seconds, for a fuzzy title match.
	defaultDurationToleranceSec = 5.0
)

// Duplicate is an inferior copy within a group, with the reason the kept
// copy beats it.
type Duplicate struct {
	Entry  *catalog.Entry `json:"entry"`
	Reason string         `json:"reason"`
}

// Group is one set of entries judged to be the same recording. Keep is the
// highest-quality copy; Artist and Title carry its display tags, while the
// matching itself runs on normalized forms.
type Group struct {
	Artist     string         `json:"artist"`
	Title      string         `json:"title"`
	Keep       *catalog.Entry `json:"keep"`
	Duplicates []Duplicate    `json:"duplicates"`
}

// Finder scans the catalog for duplicate recordings.
type Finder struct {
	store     *catalog.Store
	logger    *slog.Logger
	threshold float64
	tolerance float64
}

// New constructs a duplicate finder with default matching thresholds.
func New(store *catalog.Store, logger *slog.Logger) *Finder {
	return &Finder{
		store:     store,
		logger:    logging.NewComponentLogger(logger, "dedupe"),
		threshold: defaultSimilarityThreshold,
		tolerance: defaultDurationToleranceSec,
	}
}

// Find returns duplicate groups over all active entries, ordered by artist
// then title. Entries without both an artist and a title are skipped; they
// cannot be matched meaningfully.
func (f *Finder) Find(ctx context.Context) ([]Group, error) {
	entries, err := f.store.List(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "dedupe", "load catalog", "Unable to load catalog entries", err)
	}

	buckets := make(map[string][]keyed)
	for _, entry := range entries {
		if !entry.Active() {
			continue
		}
		artist := textnorm.Normalize(entry.Artist)
		title := textnorm.Normalize(entry.Title)
		if artist == "" || title == "" {
			continue
		}
		buckets[artist] = append(buckets[artist], keyed{entry: entry, title: title})
	}

	var groups []Group
	for _, members := range buckets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, set := range f.cluster(members) {
			if len(set) < 2 {
				continue
			}
			groups = append(groups, f.rank(set))
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Artist != groups[j].Artist {
			return groups[i].Artist < groups[j].Artist
		}
		return groups[i].Title < groups[j].Title
	})
	f.logger.Info("duplicate search completed", logging.Int("groups", len(groups)))
	return groups, nil
}

type keyed struct {
	entry *catalog.Entry
	title string
}

// cluster unions same-artist entries whose titles match exactly, or match
// fuzzily with durations inside the tolerance.
func (f *Finder) cluster(members []keyed) [][]*catalog.Entry {
	parent := make([]int, len(members))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		parent[find(a)] = find(b)
	}

	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if members[i].title == members[j].title {
				union(i, j)
				continue
			}
			sim, err := edlib.StringsSimilarity(members[i].title, members[j].title, edlib.JaroWinkler)
			if err != nil || float64(sim) < f.threshold {
				continue
			}
			di, dj := members[i].entry.DurationSeconds, members[j].entry.DurationSeconds
			if di > 0 && dj > 0 && math.Abs(di-dj) > f.tolerance {
				continue
			}
			union(i, j)
		}
	}

	sets := make(map[int][]*catalog.Entry)
	for i, member := range members {
		root := find(i)
		sets[root] = append(sets[root], member.entry)
	}
	clusters := make([][]*catalog.Entry, 0, len(sets))
	for _, set := range sets {
		clusters = append(clusters, set)
	}
	return clusters
}

// rank orders one cluster by quality, best first, and renders the verdict
// reasons relative to the kept copy.
func (f *Finder) rank(set []*catalog.Entry) Group {
	scores := make(map[string]quality.Score, len(set))
	for _, entry := range set {
		scores[entry.ID] = quality.Classify(
			entry.Format,
			entry.BitrateKbps,
			entry.SampleRateHz,
			entry.BitDepth,
			quality.ParseBitrateMode(entry.BitrateMode),
		)
	}
	sort.Slice(set, func(i, j int) bool {
		verdict, _ := quality.Compare(scores[set[i].ID], scores[set[j].ID])
		if verdict != quality.VerdictEqual {
			return verdict == quality.VerdictTrumps
		}
		return set[i].Path < set[j].Path
	})

	group := Group{
		Artist: set[0].Artist,
		Title:  set[0].DisplayTitle(),
		Keep:   set[0],
	}
	for _, entry := range set[1:] {
		_, reason := quality.Compare(scores[set[0].ID], scores[entry.ID])
		group.Duplicates = append(group.Duplicates, Duplicate{Entry: entry, Reason: reason})
	}
	return group
}
