package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Filter key names persisted in the splits table.
const (
	SplitTrain = "train"
	SplitVal   = "val"
)

// WriteSplit partitions the container's demo indices into train and val
// filter keys. round(ratio·n) indices become validation; selection is
// seeded so identical inputs reproduce identical splits. Must run after
// every demo is written — it reads the final index set. An empty container
// fails with ErrEmptyDataset.
func (s *Store) WriteSplit(ratio float64, seed int64) (train, val []int, err error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("dataset: val ratio must be in (0,1), got %v", ratio)
	}

	indices, err := s.DemoIndices()
	if err != nil {
		return nil, nil, err
	}
	if len(indices) == 0 {
		return nil, nil, ErrEmptyDataset
	}

	// DemoIndices is sorted, so the shuffle below is fully determined by
	// the seed regardless of insertion order.
	shuffled := make([]int, len(indices))
	copy(shuffled, indices)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nVal := int(math.Round(ratio * float64(len(shuffled))))
	val = append([]int(nil), shuffled[:nVal]...)
	train = append([]int(nil), shuffled[nVal:]...)
	sort.Ints(val)
	sort.Ints(train)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: begin split: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, part := range []struct {
		name    string
		indices []int
	}{
		{SplitTrain, train},
		{SplitVal, val},
	} {
		for _, idx := range part.indices {
			if _, err = tx.Exec(`INSERT INTO splits (name, demo_index) VALUES (?, ?)`, part.name, idx); err != nil {
				return nil, nil, fmt.Errorf("dataset: write split %s: %w", part.name, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("dataset: commit split: %w", err)
	}
	return train, val, nil
}
