package manifest

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/crypto"
)

// Tag is a manifest transaction's id: a keyed MAC over the transaction's
// other fields, doubling as both its identity (for the parent-DAG) and its
// authentication tag -- "tag" and "mac" are literally the same computation over the same fields, so
// a Transaction's Tag and MAC fields hold the same 32-byte value.
type Tag [32]byte

// Transaction is one manifest commit record.
type Transaction struct {
	Tag           Tag                 `msgpack:"tag"`
	Timestamp     time.Time           `msgpack:"timestamp"`
	ArchiveID     chunk.ID            `msgpack:"archive_id"`
	ArchiveName   string              `msgpack:"archive_name"`
	PreviousHeads []Tag               `msgpack:"previous_heads"`
	HMACAlgo      crypto.MACAlgorithm `msgpack:"hmac_algo"`
	MAC           []byte              `msgpack:"mac"`
}

// signedFields is the subset of a Transaction that the tag/mac are computed
// over. Kept as its own type so the msgpack encoding used for signing never
// accidentally includes the Tag or MAC fields themselves.
type signedFields struct {
	Timestamp     time.Time
	ArchiveID     chunk.ID
	ArchiveName   string
	PreviousHeads []Tag
	HMACAlgo      crypto.MACAlgorithm
}

func newTransaction(archiveID chunk.ID, archiveName string, previousHeads []Tag, hmacAlgo crypto.MACAlgorithm, timestamp time.Time, key []byte) (Transaction, error) {
	fields := signedFields{
		Timestamp:     timestamp,
		ArchiveID:     archiveID,
		ArchiveName:   archiveName,
		PreviousHeads: previousHeads,
		HMACAlgo:      hmacAlgo,
	}
	encoded, err := msgpack.Marshal(&fields)
	if err != nil {
		return Transaction{}, fmt.Errorf("manifest: encode signed fields: %w", err)
	}

	mac, err := crypto.MAC(hmacAlgo, key, encoded)
	if err != nil {
		return Transaction{}, fmt.Errorf("manifest: mac transaction: %w", err)
	}

	return Transaction{
		Tag:           Tag(mac),
		Timestamp:     timestamp,
		ArchiveID:     archiveID,
		ArchiveName:   archiveName,
		PreviousHeads: previousHeads,
		HMACAlgo:      hmacAlgo,
		MAC:           mac[:],
	}, nil
}

// verify recomputes the transaction's MAC over its signed fields and
// compares it against both the stored Tag and MAC -- a mismatch in either
// means the record was tampered with or forged without the key.
func (t Transaction) verify(key []byte) bool {
	fields := signedFields{
		Timestamp:     t.Timestamp,
		ArchiveID:     t.ArchiveID,
		ArchiveName:   t.ArchiveName,
		PreviousHeads: t.PreviousHeads,
		HMACAlgo:      t.HMACAlgo,
	}
	encoded, err := msgpack.Marshal(&fields)
	if err != nil {
		return false
	}
	mac, err := crypto.MAC(t.HMACAlgo, key, encoded)
	if err != nil {
		return false
	}
	return mac == [32]byte(t.Tag) && macBytesEqual(mac[:], t.MAC)
}

func macBytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
