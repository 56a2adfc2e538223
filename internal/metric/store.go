// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Centralised store of per-measurement quality metrics.

package metric

import (
	"errors"
	"fmt"
	"sync"
)

var ErrRecordNotFound = errors.New("record not found")

type ID int64

type Store struct {
	mu      sync.RWMutex
	records map[ID]Record
	next    ID
}

func NewStore() *Store {
	return &Store{
		records: make(map[ID]Record),
	}
}

func (s *Store) Insert(r Record) ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[s.next] = r
	id := s.next
	s.next++

	return id
}

func (s *Store) Get(id ID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return r, fmt.Errorf("getting record: %w", ErrRecordNotFound)
	}

	return r, nil
}

func (s *Store) Exists(id ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.records[id]

	return exists
}

func (s *Store) GetIDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]ID, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) Update(id ID, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return fmt.Errorf("updating record: %w", ErrRecordNotFound)
	}

	s.records[id] = r
	return nil
}

func (s *Store) Delete(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return fmt.Errorf("deleting record: %w", ErrRecordNotFound)
	}

	delete(s.records, id)
	return nil
}

// Record contains metrics for a single distorted vs reference
// measurement. Metric blocks for features not requested stay zero and
// still land in the CSV report, column set has to be stable across runs.
type Record struct {
	Name          string
	ReferenceFile string
	DistortedFile string
	VQMResultFile string
	FrameCSVFile  string
	Cmd           string
	VideoDuration float64
	FrameCount    int

	VMAFMin          float64
	VMAFMax          float64
	VMAFMean         float64
	VMAFHarmonicMean float64
	VMAFStDev        float64
	VMAFVariance     float64
	VMAFPercentile5  float64

	PSNRMin          float64
	PSNRMax          float64
	PSNRMean         float64
	PSNRHarmonicMean float64
	PSNRStDev        float64
	PSNRVariance     float64
	PSNRPercentile5  float64

	SSIMMin          float64
	SSIMMax          float64
	SSIMMean         float64
	SSIMHarmonicMean float64
	SSIMStDev        float64
	SSIMVariance     float64
	SSIMPercentile5  float64

	MS_SSIMMin          float64
	MS_SSIMMax          float64
	MS_SSIMMean         float64
	MS_SSIMHarmonicMean float64
	MS_SSIMStDev        float64
	MS_SSIMVariance     float64
	MS_SSIMPercentile5  float64
}
