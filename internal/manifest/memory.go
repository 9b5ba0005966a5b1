package manifest

import (
	"sort"
	"sync"
	"time"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/crypto"
)

// MemoryLog is the in-memory backend's manifest: the same hash-chained
// transaction semantics as Log, with no file locking or disk persistence,
// applied here to the manifest rather than the index.
type MemoryLog struct {
	key []byte

	mu           sync.Mutex
	transactions map[Tag]Transaction
	heads        []Tag
}

// NewMemoryLog returns an empty in-memory manifest keyed with key.
func NewMemoryLog(key []byte) *MemoryLog {
	return &MemoryLog{key: key, transactions: make(map[Tag]Transaction)}
}

func (m *MemoryLog) WriteArchive(archiveID chunk.ID, archiveName string, hmacAlgo crypto.MACAlgorithm, timestamp time.Time) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, err := newTransaction(archiveID, archiveName, append([]Tag(nil), m.heads...), hmacAlgo, timestamp, m.key)
	if err != nil {
		return Transaction{}, err
	}
	m.transactions[txn.Tag] = txn
	m.heads = []Tag{txn.Tag}
	return txn, nil
}

func (m *MemoryLog) Archives() []StoredArchive {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]StoredArchive, 0, len(m.transactions))
	for _, txn := range m.transactions {
		out = append(out, StoredArchive{
			Tag:         txn.Tag,
			Timestamp:   txn.Timestamp,
			ArchiveID:   txn.ArchiveID,
			ArchiveName: txn.ArchiveName,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (m *MemoryLog) LastModified() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest time.Time
	var found bool
	for _, head := range m.heads {
		txn, ok := m.transactions[head]
		if !ok {
			continue
		}
		if !found || txn.Timestamp.After(latest) {
			latest = txn.Timestamp
			found = true
		}
	}
	return latest, found
}

// Close is a no-op; there is no file handle or lock to release.
func (m *MemoryLog) Close() error { return nil }

// Backend is the capability the repository façade depends on; both Log
// (MultiFile/FlatFile) and MemoryLog (InMemory) satisfy it.
type Backend interface {
	WriteArchive(archiveID chunk.ID, archiveName string, hmacAlgo crypto.MACAlgorithm, timestamp time.Time) (Transaction, error)
	Archives() []StoredArchive
	LastModified() (time.Time, bool)
	Close() error
}

var (
	_ Backend = (*Log)(nil)
	_ Backend = (*MemoryLog)(nil)
)
