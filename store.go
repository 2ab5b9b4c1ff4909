package photoproof

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/google/uuid"
)

// PointsPerUpload is the reward for an approved submission.
const PointsPerUpload = 150

// duplicateDistance is the maximum dHash Hamming distance at which a new
// photo counts as a re-submission of an earlier approved one.
const duplicateDistance = 10

// SubmissionRecord is one stored validation outcome.
type SubmissionRecord struct {
	ID         string // random UUID
	Identity   string
	Landmark   string
	City       string
	ImageData  string // data: URI of the uploaded bytes
	DHashScore float64
	HistScore  float64
	Verdict    Verdict
	TakenAt    time.Time // EXIF capture time, zero when absent
	Camera     string    // EXIF camera model, empty when absent
	UploadedAt time.Time
	Points     int // points awarded for this record
}

// MemoryStore keeps submission records and per-identity point totals in
// memory for the process lifetime. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	records []SubmissionRecord
	points  map[string]int
	hashes  map[string][]*goimagehash.ImageHash // identity → hashes of rewarded photos
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		points: make(map[string]int),
		hashes: make(map[string][]*goimagehash.ImageHash),
		now:    time.Now,
	}
}

// Record stores the outcome of a validated submission. Approved uploads earn
// PointsPerUpload, except when the photo is perceptually identical to one
// the same identity already earned points for — the record is kept but no
// points are awarded twice for the same picture.
func (s *MemoryStore) Record(_ context.Context, sub Submission, res *ValidationResult) (*SubmissionRecord, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: missing validation result", ErrInvalidInput)
	}

	rec := SubmissionRecord{
		ID:         uuid.NewString(),
		Identity:   sub.Identity,
		Landmark:   sub.Landmark,
		City:       sub.City,
		ImageData:  EncodeDataURL(sub.Image, sniffMIME(sub.Image)),
		DHashScore: res.DHashScore,
		HistScore:  res.HistScore,
		Verdict:    res.Verdict,
		UploadedAt: s.now(),
	}
	if meta := ExtractCaptureMetadata(sub.Image); meta != nil {
		rec.TakenAt = meta.TakenAt
		rec.Camera = meta.Camera
	}

	// Hash outside the lock: decoding is the expensive part and needs no
	// store state.
	var hash *goimagehash.ImageHash
	if res.Verdict == VerdictApproved {
		hash = hashUpload(sub.Image)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if res.Verdict == VerdictApproved {
		if !s.isDuplicateLocked(sub.Identity, hash) {
			rec.Points = PointsPerUpload
			s.points[sub.Identity] += PointsPerUpload
			if hash != nil {
				s.hashes[sub.Identity] = append(s.hashes[sub.Identity], hash)
			}
		}
	}
	s.records = append(s.records, rec)

	return &rec, nil
}

// isDuplicateLocked reports whether hash is perceptually identical to a
// photo this identity was already rewarded for. A nil hash (undecodable
// image) is accepted as unique: graceful degradation, the verdict already
// vouched for the image.
func (s *MemoryStore) isDuplicateLocked(identity string, hash *goimagehash.ImageHash) bool {
	if hash == nil {
		return false
	}
	for _, h := range s.hashes[identity] {
		dist, err := hash.Distance(h)
		if err == nil && dist < duplicateDistance {
			return true
		}
	}
	return false
}

// hashUpload computes the dHash of raw upload bytes, or nil if the image
// cannot be decoded or hashed.
func hashUpload(data []byte) *goimagehash.ImageHash {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return nil
	}
	return hash
}

// Delete removes the record with the given id, refunding its points to the
// identity (floored at zero). Returns false if no such record exists.
func (s *MemoryStore) Delete(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.records {
		if rec.ID != id {
			continue
		}
		if rec.Points > 0 {
			remaining := s.points[rec.Identity] - rec.Points
			if remaining < 0 {
				remaining = 0
			}
			s.points[rec.Identity] = remaining
		}
		s.records = append(s.records[:i], s.records[i+1:]...)
		return true
	}
	return false
}

// Points returns the identity's current point total.
func (s *MemoryStore) Points(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points[identity]
}

// ApprovedCount returns the number of approved records for an identity.
func (s *MemoryStore) ApprovedCount(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, rec := range s.records {
		if rec.Identity == identity && rec.Verdict == VerdictApproved {
			n++
		}
	}
	return n
}

// RecordsFor returns a copy of the identity's records, oldest first.
func (s *MemoryStore) RecordsFor(identity string) []SubmissionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []SubmissionRecord
	for _, rec := range s.records {
		if rec.Identity == identity {
			out = append(out, rec)
		}
	}
	return out
}
