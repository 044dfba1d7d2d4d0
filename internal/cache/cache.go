// Package cache persists oracle results keyed by content fingerprint.
//
// Layout under the cache root:
//
//	version             (schema version marker)
//	assessments/<key>.json
//	proposals/<key>.json
//
// Records for different keys are fully independent and are kept forever;
// clearing the cache is an explicit operation. A record that fails to parse
// is a miss: the caller recomputes and the bad file is overwritten in place.
package cache

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kmordal/namelens/internal/errors"
	"github.com/kmordal/namelens/internal/oracle"
)

// SchemaVersion is the on-disk layout version. Bump when the layout changes.
const SchemaVersion = 1

// RubricVersion marks the naming-convention rules. Bumping it invalidates
// every cached assessment and proposal without touching the files.
const RubricVersion = 1

// Key addresses one (content, configuration) pair.
type Key struct {
	Hash     string // lowercase hex SHA-256 of the asset bytes
	Provider string
	Model    string
	Rubric   int
}

// NewKey builds a Key for the current rubric version.
func NewKey(hash, provider, model string) Key {
	return Key{Hash: hash, Provider: provider, Model: model, Rubric: RubricVersion}
}

// String renders the key in its on-disk form:
// <hex-hash>__<provider>__<model>__v<rubric>.
func (k Key) String() string {
	return fmt.Sprintf("%s__%s__%s__v%d",
		k.Hash, sanitize(k.Provider), sanitize(k.Model), k.Rubric)
}

// sanitize makes provider and model identifiers filesystem-safe.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	return strings.ReplaceAll(s, ":", "_")
}

// assessmentRecord is the serialized form of one assessment tier entry.
// The key fields are echoed so stale or miskeyed records can be rejected.
type assessmentRecord struct {
	Hash       string            `json:"hash"`
	Provider   string            `json:"provider"`
	Model      string            `json:"model"`
	Rubric     int               `json:"rubric_version"`
	Assessment oracle.Assessment `json:"assessment"`
}

// proposalRecord is the serialized form of one proposal tier entry.
type proposalRecord struct {
	Hash     string          `json:"hash"`
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
	Rubric   int             `json:"rubric_version"`
	Proposal oracle.Proposal `json:"proposal"`
}

// Store is a two-tier filesystem cache rooted at one directory. It is opened
// at the start of a run; every Put is durable before it returns.
type Store struct {
	root string
}

// Open ensures the cache layout exists under root and returns a Store.
// Opening is idempotent.
func Open(root string) (*Store, error) {
	for _, sub := range []string{"assessments", "proposals"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0700); err != nil {
			return nil, errors.NewWrite(root, err)
		}
	}

	versionFile := filepath.Join(root, "version")
	if _, err := os.Stat(versionFile); os.IsNotExist(err) {
		data := fmt.Sprintf("%d\n", SchemaVersion)
		if err := writeAtomic(versionFile, []byte(data)); err != nil {
			return nil, err
		}
	}

	return &Store{root: root}, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// GetAssessment returns the cached assessment for key, or ok=false on a
// miss. An absent record is a plain miss. A record that exists but cannot
// be decoded, or whose echoed key fields disagree with key, is a miss with
// a CACHE_CORRUPT error alongside; the caller recomputes either way and the
// next Put overwrites the bad file.
func (s *Store) GetAssessment(key Key) (oracle.Assessment, bool, error) {
	var rec assessmentRecord
	found, err := s.readRecord(s.assessmentPath(key), &rec)
	if !found {
		return oracle.Assessment{}, false, err
	}
	if rec.Hash != key.Hash || rec.Provider != key.Provider ||
		rec.Model != key.Model || rec.Rubric != key.Rubric {
		return oracle.Assessment{}, false, errors.NewCacheCorrupt(key.String(), errMiskeyed)
	}
	return rec.Assessment, true, nil
}

// PutAssessment durably writes the assessment for key.
func (s *Store) PutAssessment(key Key, a oracle.Assessment) error {
	rec := assessmentRecord{
		Hash:       key.Hash,
		Provider:   key.Provider,
		Model:      key.Model,
		Rubric:     key.Rubric,
		Assessment: a,
	}
	return s.writeRecord(s.assessmentPath(key), rec)
}

// GetProposal returns the cached proposal for key, or ok=false on a miss.
// Corrupt and miskeyed records follow the GetAssessment contract.
func (s *Store) GetProposal(key Key) (oracle.Proposal, bool, error) {
	var rec proposalRecord
	found, err := s.readRecord(s.proposalPath(key), &rec)
	if !found {
		return oracle.Proposal{}, false, err
	}
	if rec.Hash != key.Hash || rec.Provider != key.Provider ||
		rec.Model != key.Model || rec.Rubric != key.Rubric {
		return oracle.Proposal{}, false, errors.NewCacheCorrupt(key.String(), errMiskeyed)
	}
	return rec.Proposal, true, nil
}

// PutProposal durably writes the proposal for key.
func (s *Store) PutProposal(key Key, p oracle.Proposal) error {
	rec := proposalRecord{
		Hash:     key.Hash,
		Provider: key.Provider,
		Model:    key.Model,
		Rubric:   key.Rubric,
		Proposal: p,
	}
	return s.writeRecord(s.proposalPath(key), rec)
}

// Stats returns the record count in each tier.
func (s *Store) Stats() (assessments, proposals int, err error) {
	assessments, err = countRecords(filepath.Join(s.root, "assessments"))
	if err != nil {
		return 0, 0, err
	}
	proposals, err = countRecords(filepath.Join(s.root, "proposals"))
	if err != nil {
		return 0, 0, err
	}
	return assessments, proposals, nil
}

// Clear removes every record in both tiers, leaving the layout in place.
func (s *Store) Clear() (removed int, err error) {
	for _, sub := range []string{"assessments", "proposals"} {
		dir := filepath.Join(s.root, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, errors.NewWrite(dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return removed, errors.NewWrite(filepath.Join(dir, e.Name()), err)
			}
			removed++
		}
	}
	return removed, nil
}

func (s *Store) assessmentPath(key Key) string {
	return filepath.Join(s.root, "assessments", key.String()+".json")
}

func (s *Store) proposalPath(key Key) string {
	return filepath.Join(s.root, "proposals", key.String()+".json")
}

// errMiskeyed describes a record whose echoed key fields disagree with the
// key it was looked up under.
var errMiskeyed = fmt.Errorf("echoed key fields do not match")

// readRecord loads and decodes one record. An absent file is a plain miss;
// any other failure is a miss with a CACHE_CORRUPT diagnostic.
func (s *Store) readRecord(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewCacheCorrupt(recordName(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.NewCacheCorrupt(recordName(path), err)
	}
	return true, nil
}

// recordName strips the tier directory and extension from a record path.
func recordName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".json")
}

// writeRecord marshals and durably writes one record.
func (s *Store) writeRecord(path string, rec any) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// writeAtomic writes data to a temp file in the target directory and renames
// it into place, so a partial record is never observable.
func writeAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(err)
	}
	tmp := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return errors.NewWrite(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.NewWrite(path, err)
	}
	return nil
}

func countRecords(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.NewWrite(dir, err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n, nil
}
