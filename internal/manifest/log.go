package manifest

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/crypto"
	"github.com/sambhavthakkar/archivevault/internal/observability"
	"github.com/sambhavthakkar/archivevault/internal/repoerr"
)

const settingsFileName = "chunk.settings"

// StoredArchive is one entry yielded by Log.Archives: enough of a
// transaction to resolve and list an archive without exposing the DAG
// plumbing.
type StoredArchive struct {
	Tag         Tag
	Timestamp   time.Time
	ArchiveID   chunk.ID
	ArchiveName string
}

// Log is the manifest: a directory of append-only transaction files plus a
// persisted ChunkSettings file.
type Log struct {
	dir  string
	key  []byte
	log  *observability.Logger
	lock *flock.Flock
	file *os.File

	mu           sync.Mutex
	transactions map[Tag]Transaction
	heads        []Tag
}

// Open enumerates existing transaction files, verifies the reachable DAG,
// acquires an advisory lock on one file (creating a new one if every
// existing file is already locked by another process), and optionally
// rewrites the persisted ChunkSettings.
//
// newSettings may be the zero value; pass hasSettings=false to keep the
// persisted settings. If no settings file exists yet, hasSettings=false
// writes chunk.DefaultSettings() and returns it.
func Open(dir string, key []byte, newSettings chunk.Settings, hasSettings bool, log *observability.Logger) (*Log, chunk.Settings, error) {
	if log == nil {
		log = observability.NewLogger("archivevault", "dev", nil)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, chunk.Settings{}, fmt.Errorf("manifest: create dir: %w", err)
	}

	l := &Log{dir: dir, key: key, log: log, transactions: make(map[Tag]Transaction)}

	files, err := transactionFiles(dir)
	if err != nil {
		return nil, chunk.Settings{}, err
	}
	for _, name := range files {
		if err := l.loadFile(filepath.Join(dir, name)); err != nil {
			return nil, chunk.Settings{}, err
		}
	}

	l.heads = computeHeads(l.transactions)
	if err := l.verifyHeads(); err != nil {
		return nil, chunk.Settings{}, err
	}

	if err := l.acquireLock(files); err != nil {
		return nil, chunk.Settings{}, err
	}

	settings, err := l.loadOrWriteSettings(newSettings, hasSettings)
	if err != nil {
		l.lock.Unlock()
		return nil, chunk.Settings{}, err
	}

	return l, settings, nil
}

func transactionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("manifest: list dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == settingsFileName || filepath.Ext(e.Name()) == ".lock" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(e.Name(), "%d", &n); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		var a, b int
		fmt.Sscanf(names[i], "%d", &a)
		fmt.Sscanf(names[j], "%d", &b)
		return a < b
	})
	return names, nil
}

func (l *Log) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("manifest: open %s: %w", path, err)
	}
	defer f.Close()

	r := newFrameReader(f)
	for {
		payload, err := r.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("manifest: read %s: %w", path, err)
		}
		var txn Transaction
		if err := msgpack.Unmarshal(payload, &txn); err != nil {
			return fmt.Errorf("manifest: decode transaction in %s: %w", path, err)
		}
		l.transactions[txn.Tag] = txn
	}
}

// acquireLock tries an advisory lock on each existing file in order, and
// falls back to creating (and locking) a new numerically-named file if
// every existing one is held.
func (l *Log) acquireLock(existing []string) error {
	for _, name := range existing {
		fl := flock.New(filepath.Join(l.dir, name))
		ok, err := fl.TryLock()
		if err != nil {
			continue
		}
		if ok {
			f, err := os.OpenFile(filepath.Join(l.dir, name), os.O_RDWR|os.O_APPEND, 0o600)
			if err != nil {
				fl.Unlock()
				return fmt.Errorf("manifest: reopen locked file: %w", err)
			}
			l.lock, l.file = fl, f
			return nil
		}
	}

	nextID := 0
	for _, name := range existing {
		var n int
		fmt.Sscanf(name, "%d", &n)
		if n >= nextID {
			nextID = n + 1
		}
	}
	path := filepath.Join(l.dir, fmt.Sprintf("%020d", nextID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %v", repoerr.ErrFileLock, err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil || !ok {
		f.Close()
		return fmt.Errorf("%w: could not lock new manifest file", repoerr.ErrFileLock)
	}
	l.lock, l.file = fl, f
	return nil
}

func (l *Log) loadOrWriteSettings(newSettings chunk.Settings, hasSettings bool) (chunk.Settings, error) {
	path := filepath.Join(l.dir, settingsFileName)

	if hasSettings {
		data, err := msgpack.Marshal(&newSettings)
		if err != nil {
			return chunk.Settings{}, fmt.Errorf("manifest: encode settings: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return chunk.Settings{}, fmt.Errorf("manifest: write settings: %w", err)
		}
		return newSettings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No persisted settings yet and the caller didn't supply any:
			// fall back to the repository default.
			def := chunk.DefaultSettings()
			return l.loadOrWriteSettings(def, true)
		}
		return chunk.Settings{}, fmt.Errorf("manifest: read settings: %w", err)
	}
	var settings chunk.Settings
	if err := msgpack.Unmarshal(data, &settings); err != nil {
		return chunk.Settings{}, fmt.Errorf("%w: decode chunk.settings: %v", repoerr.ErrFormatError, err)
	}
	return settings, nil
}

func computeHeads(transactions map[Tag]Transaction) []Tag {
	isParent := make(map[Tag]bool, len(transactions))
	for _, txn := range transactions {
		for _, parent := range txn.PreviousHeads {
			isParent[parent] = true
		}
	}
	var heads []Tag
	for tag := range transactions {
		if !isParent[tag] {
			heads = append(heads, tag)
		}
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i] != heads[j] && lessTag(heads[i], heads[j]) })
	return heads
}

func lessTag(a, b Tag) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// verifyHeads checks every head's reachable set: a transaction verifies iff
// its MAC matches and all of its parents verify, memoized to avoid
// re-checking shared ancestors.
func (l *Log) verifyHeads() error {
	memo := make(map[Tag]bool)
	var check func(tag Tag) bool
	check = func(tag Tag) bool {
		if v, ok := memo[tag]; ok {
			return v
		}
		txn, ok := l.transactions[tag]
		if !ok {
			memo[tag] = false
			return false
		}
		if !txn.verify(l.key) {
			memo[tag] = false
			return false
		}
		for _, parent := range txn.PreviousHeads {
			if !check(parent) {
				memo[tag] = false
				return false
			}
		}
		memo[tag] = true
		return true
	}

	for _, head := range l.heads {
		if !check(head) {
			l.log.Error(repoerr.ErrAuthFailure, "manifest: head failed verification")
			return repoerr.NewTagError([32]byte(head), repoerr.ErrAuthFailure)
		}
	}
	return nil
}

// WriteArchive appends a new transaction committing archiveID/archiveName
// with parents = the current head set, then replaces the in-memory heads
// with the single new tag.
func (l *Log) WriteArchive(archiveID chunk.ID, archiveName string, hmacAlgo crypto.MACAlgorithm, timestamp time.Time) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn, err := newTransaction(archiveID, archiveName, append([]Tag(nil), l.heads...), hmacAlgo, timestamp, l.key)
	if err != nil {
		return Transaction{}, err
	}

	if err := l.appendLocked(txn); err != nil {
		return Transaction{}, err
	}

	l.transactions[txn.Tag] = txn
	l.heads = []Tag{txn.Tag}
	l.log.Info("manifest: transaction committed")
	return txn, nil
}

func (l *Log) appendLocked(txn Transaction) error {
	payload, err := msgpack.Marshal(&txn)
	if err != nil {
		return fmt.Errorf("manifest: encode transaction: %w", err)
	}

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))

	if _, err := l.file.Write(lenBuf[:n]); err != nil {
		return fmt.Errorf("manifest: write length prefix: %w", err)
	}
	if _, err := l.file.Write(payload); err != nil {
		return fmt.Errorf("manifest: write transaction: %w", err)
	}
	return l.file.Sync()
}

// Archives returns every transaction in the manifest, sorted by timestamp
// descending.
func (l *Log) Archives() []StoredArchive {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]StoredArchive, 0, len(l.transactions))
	for _, txn := range l.transactions {
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

// LastModified is max(timestamp) over all current heads.
func (l *Log) LastModified() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var latest time.Time
	var found bool
	for _, head := range l.heads {
		txn, ok := l.transactions[head]
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

// Close releases the advisory lock and closes the locked file handle.
func (l *Log) Close() error {
	if l.file != nil {
		l.file.Close()
	}
	if l.lock != nil {
		return l.lock.Unlock()
	}
	return nil
}

type frameReader struct {
	r io.Reader
}

func newFrameReader(r io.Reader) *frameReader { return &frameReader{r: r} }

func (fr *frameReader) next() ([]byte, error) {
	length, err := binary.ReadUvarint(byteReaderFrom(fr.r))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return nil, fmt.Errorf("manifest: read frame payload: %w", err)
	}
	return buf, nil
}

// byteReaderFrom adapts an io.Reader to io.ByteReader one byte at a time,
// which is all binary.ReadUvarint needs and keeps the frame reader from
// requiring a buffered reader (which would over-read past frame
// boundaries on a shared file handle).
type singleByteReader struct {
	r io.Reader
	b [1]byte
}

func byteReaderFrom(r io.Reader) io.ByteReader { return &singleByteReader{r: r} }

func (s *singleByteReader) ReadByte() (byte, error) {
	_, err := io.ReadFull(s.r, s.b[:])
	return s.b[0], err
}
