package db

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

var log = logrus.WithField("module", "db")

// BlockIndexEntry is a block node stored on the disk.
type BlockIndexEntry struct {
	Hash      chainhash.Hash
	Parent    chainhash.Hash
	Slot      uint64
	Score     *big.Int
	Canonical bool
	Children  []chainhash.Hash
}

// BlockStore keeps every received block along with a fork index. Blocks on
// the canonical chain are flagged in their index entries and the canonical
// head is tracked together with its score.
type BlockStore struct {
	kv KeyValueStore
}

// NewBlockStore creates a block store over the given key-value store.
func NewBlockStore(kv KeyValueStore) *BlockStore {
	return &BlockStore{kv: kv}
}

// WithTx returns a block store that reads and writes through the given
// transaction.
func (s *BlockStore) WithTx(txn KeyValueStore) *BlockStore {
	return &BlockStore{kv: txn}
}

// Save stores a block with its score. If canonical is set, the block also
// becomes the canonical head.
func (s *BlockStore) Save(block *primitives.Block, score *big.Int, canonical bool) error {
	blockHash := block.Hash()

	enc, err := block.Encode()
	if err != nil {
		return err
	}
	if err := s.kv.Put(hashKey(blockPrefix, blockHash), enc); err != nil {
		return err
	}

	entry := &BlockIndexEntry{
		Hash:      blockHash,
		Parent:    block.ParentHash,
		Slot:      block.Slot,
		Score:     new(big.Int).Set(score),
		Canonical: canonical,
	}
	if err := s.putIndexEntry(entry); err != nil {
		return err
	}

	if err := s.addChild(block.ParentHash, blockHash); err != nil {
		return err
	}

	if err := s.addToSlot(block.Slot, blockHash); err != nil {
		return err
	}

	if canonical {
		return s.setCanonicalHead(blockHash, score)
	}
	return nil
}

func (s *BlockStore) addChild(parent chainhash.Hash, child chainhash.Hash) error {
	if parent.IsZero() {
		return nil
	}
	parentEntry, err := s.GetIndexEntry(parent)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	parentEntry.Children = append(parentEntry.Children, child)
	return s.putIndexEntry(parentEntry)
}

func (s *BlockStore) addToSlot(slot uint64, h chainhash.Hash) error {
	hashes, err := s.GetHashesBySlot(slot)
	if err != nil {
		return err
	}
	hashes = append(hashes, h)
	enc, err := rlp.EncodeToBytes(hashes)
	if err != nil {
		return err
	}
	return s.kv.Put(slotKey(slot), enc)
}

// GetHashesBySlot gets the hashes of all stored blocks at a slot.
func (s *BlockStore) GetHashesBySlot(slot uint64) ([]chainhash.Hash, error) {
	enc, err := s.kv.Get(slotKey(slot))
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var hashes []chainhash.Hash
	if err := rlp.DecodeBytes(enc, &hashes); err != nil {
		return nil, errors.Wrapf(err, "could not decode slot index for slot %d", slot)
	}
	return hashes, nil
}

// GetCanonicalBlockBySlot gets the canonical block at a slot.
func (s *BlockStore) GetCanonicalBlockBySlot(slot uint64) (*primitives.Block, error) {
	hashes, err := s.GetHashesBySlot(slot)
	if err != nil {
		return nil, err
	}
	for _, h := range hashes {
		entry, err := s.GetIndexEntry(h)
		if err != nil {
			return nil, err
		}
		if entry.Canonical {
			return s.GetByHash(h)
		}
	}
	return nil, ErrNotFound
}

// GetByHash gets a block by hash.
func (s *BlockStore) GetByHash(h chainhash.Hash) (*primitives.Block, error) {
	enc, err := s.kv.Get(hashKey(blockPrefix, h))
	if err != nil {
		return nil, err
	}
	block, err := primitives.DecodeBlock(enc)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode block %s", h)
	}
	return block, nil
}

// Exist checks if a block is stored.
func (s *BlockStore) Exist(h chainhash.Hash) (bool, error) {
	return s.kv.Has(hashKey(blockPrefix, h))
}

// GetIndexEntry gets the fork index entry of a block.
func (s *BlockStore) GetIndexEntry(h chainhash.Hash) (*BlockIndexEntry, error) {
	enc, err := s.kv.Get(hashKey(indexPrefix, h))
	if err != nil {
		return nil, err
	}
	entry := new(BlockIndexEntry)
	if err := rlp.DecodeBytes(enc, entry); err != nil {
		return nil, errors.Wrapf(err, "could not decode index entry %s", h)
	}
	return entry, nil
}

func (s *BlockStore) putIndexEntry(entry *BlockIndexEntry) error {
	enc, err := rlp.EncodeToBytes(entry)
	if err != nil {
		return err
	}
	return s.kv.Put(hashKey(indexPrefix, entry.Hash), enc)
}

// GetCanonicalHeadHash gets the hash of the canonical head, or ErrNotFound
// if no block was ever made canonical.
func (s *BlockStore) GetCanonicalHeadHash() (chainhash.Hash, error) {
	enc, err := s.kv.Get(canonicalHeadKey)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return chainhash.BytesToHash(enc)
}

// GetCanonicalHead gets the canonical head block.
func (s *BlockStore) GetCanonicalHead() (*primitives.Block, error) {
	h, err := s.GetCanonicalHeadHash()
	if err != nil {
		return nil, err
	}
	return s.GetByHash(h)
}

// GetCanonicalHeadScore gets the score of the canonical head. It is zero
// when no head is stored.
func (s *BlockStore) GetCanonicalHeadScore() (*big.Int, error) {
	enc, err := s.kv.Get(canonicalHeadScoreKey)
	if err == ErrNotFound {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(enc), nil
}

func (s *BlockStore) setCanonicalHead(h chainhash.Hash, score *big.Int) error {
	if err := s.kv.Put(canonicalHeadKey, h[:]); err != nil {
		return err
	}
	return s.kv.Put(canonicalHeadScoreKey, score.Bytes())
}

// ReorgTo makes block the canonical head. The canonical flags are cleared from
// the current head back to the common ancestor and set from the ancestor up
// to block.
func (s *BlockStore) ReorgTo(block *primitives.Block) error {
	newHead := block.Hash()

	newEntry, err := s.GetIndexEntry(newHead)
	if err != nil {
		return errors.Wrapf(err, "could not find index entry for new head %s", newHead)
	}

	// blocks on the new branch that are not canonical yet, tip first
	var branch []*BlockIndexEntry
	ancestor := newHead
	for !ancestor.IsZero() {
		entry, err := s.GetIndexEntry(ancestor)
		if err != nil {
			return errors.Wrapf(err, "could not find index entry for %s", ancestor)
		}
		if entry.Canonical {
			break
		}
		branch = append(branch, entry)
		ancestor = entry.Parent
	}

	oldHead, err := s.GetCanonicalHeadHash()
	if err == ErrNotFound {
		oldHead = chainhash.ZeroHash
	} else if err != nil {
		return err
	}

	unflagged := 0
	for cur := oldHead; cur != ancestor && !cur.IsZero(); {
		entry, err := s.GetIndexEntry(cur)
		if err != nil {
			return errors.Wrapf(err, "could not find index entry for %s", cur)
		}
		entry.Canonical = false
		if err := s.putIndexEntry(entry); err != nil {
			return err
		}
		unflagged++
		cur = entry.Parent
	}

	for i := len(branch) - 1; i >= 0; i-- {
		branch[i].Canonical = true
		if err := s.putIndexEntry(branch[i]); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"from":     oldHead.Short(),
		"to":       newHead.Short(),
		"ancestor": ancestor.Short(),
		"dropped":  unflagged,
		"added":    len(branch),
	}).Debug("reorganized canonical chain")

	return s.setCanonicalHead(newHead, newEntry.Score)
}

// GetChainFrom walks the parents of a block back to genesis, returning the
// chain oldest block first.
func (s *BlockStore) GetChainFrom(h chainhash.Hash) ([]*primitives.Block, error) {
	var chain []*primitives.Block
	for cur := h; !cur.IsZero(); {
		block, err := s.GetByHash(cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, block)
		cur = block.ParentHash
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
