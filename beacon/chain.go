package beacon

import (
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/beacon/db"
	"github.com/phoreproject/beaconcore/primitives"
)

var log = logrus.WithField("module", "beacon")

// ErrNotInitialized is returned when blocks are inserted before Init.
var ErrNotInitialized = errors.New("beacon chain is not initialized")

// ScoredHead is a block with its fork choice score and the state after it.
type ScoredHead struct {
	Block *primitives.Block
	Score *big.Int
	State *primitives.ChainState
}

// IsParentOf checks if other directly extends h.
func (h *ScoredHead) IsParentOf(other *ScoredHead) bool {
	return h.Block.IsParentOf(other.Block)
}

// ShouldReorgTo checks if other beats h. Equal scores keep the head that was
// seen first.
func (h *ScoredHead) ShouldReorgTo(other *ScoredHead) bool {
	return other.Score.Cmp(h.Score) > 0
}

// ChainConfig configures a beacon chain.
type ChainConfig struct {
	Config   *config.Config
	Database db.Database

	// Transition is applied to every block after genesis.
	Transition StateTransition
	// InitialTransition derives the genesis state from the empty state.
	InitialTransition StateTransition
	Score             ScoreFunction

	StateCacheSize  int
	EventBufferSize int
}

// BeaconChain keeps track of the canonical head and processes incoming
// blocks.
type BeaconChain struct {
	config   *config.Config
	database db.Database
	blocks   *db.BlockStore
	states   *db.StateStore

	transition        StateTransition
	initialTransition StateTransition
	beaconValidator   *BeaconValidator
	stateValidator    StateValidator
	score             ScoreFunction

	events *publisher

	// held for the whole of Insert
	insertLock sync.Mutex

	headLock     sync.RWMutex
	head         *ScoredHead
	genesisState *primitives.ChainState
}

// NewBeaconChain creates a beacon chain. Init must be called before blocks
// are inserted.
func NewBeaconChain(c ChainConfig) (*BeaconChain, error) {
	if c.Config == nil || c.Database == nil || c.Transition == nil || c.InitialTransition == nil {
		return nil, errors.New("config, database and transitions are required")
	}
	if c.Score == nil {
		c.Score = FinalityScore
	}
	if c.StateCacheSize == 0 {
		c.StateCacheSize = db.DefaultStateCacheSize
	}
	if c.EventBufferSize == 0 {
		c.EventBufferSize = DefaultEventBufferSize
	}

	states, err := db.NewStateStore(c.Database, c.StateCacheSize)
	if err != nil {
		return nil, err
	}
	blocks := db.NewBlockStore(c.Database)

	return &BeaconChain{
		config:            c.Config,
		database:          c.Database,
		blocks:            blocks,
		states:            states,
		transition:        c.Transition,
		initialTransition: c.InitialTransition,
		beaconValidator:   NewBeaconValidator(blocks, c.Config),
		score:             c.Score,
		events:            newPublisher(c.EventBufferSize),
	}, nil
}

// Init loads the canonical head from the database or starts from the genesis
// state if there is none.
func (c *BeaconChain) Init() error {
	c.insertLock.Lock()
	defer c.insertLock.Unlock()

	genesisState, err := c.initialTransition.ApplyBlock(primitives.GenesisBlock(), c.states.GetEmpty())
	if err != nil {
		return errors.Wrap(err, "could not derive genesis state")
	}

	head, err := c.loadHead(genesisState)
	if err != nil {
		return err
	}

	c.headLock.Lock()
	c.genesisState = genesisState
	c.head = head
	c.headLock.Unlock()
	headSlot.Set(float64(head.Block.Slot))

	c.events.publish(ChainLoaded{Block: head.Block, State: head.State.Copy()})
	c.events.publish(ChainSynced{Block: head.Block, State: head.State.Copy()})

	log.WithFields(logrus.Fields{
		"head":  head.Block.String(),
		"score": head.Score,
	}).Info("chain loaded")

	return nil
}

func (c *BeaconChain) loadHead(genesisState *primitives.ChainState) (*ScoredHead, error) {
	block, err := c.blocks.GetCanonicalHead()
	if err == db.ErrNotFound {
		return &ScoredHead{
			Block: primitives.GenesisBlock(),
			Score: big.NewInt(0),
			State: genesisState,
		}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not load canonical head")
	}

	score, err := c.blocks.GetCanonicalHeadScore()
	if err != nil {
		return nil, errors.Wrap(err, "could not load canonical head score")
	}

	state, err := c.states.Get(block.StateRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load state of canonical head %s", block)
	}

	return &ScoredHead{Block: block, Score: score, State: state}, nil
}

func (c *BeaconChain) currentHead() *ScoredHead {
	c.headLock.RLock()
	defer c.headLock.RUnlock()
	return c.head
}


// GetConfig gets the consensus config of the chain.
func (c *BeaconChain) GetConfig() *config.Config {
	return c.config
}
// GetCanonicalHead gets the head block of the canonical chain.
func (c *BeaconChain) GetCanonicalHead() *primitives.Block {
	head := c.currentHead()
	if head == nil {
		return nil
	}
	return head.Block
}

// GetCanonicalHeadState gets a copy of the state after the canonical head.
func (c *BeaconChain) GetCanonicalHeadState() *primitives.ChainState {
	head := c.currentHead()
	if head == nil {
		return nil
	}
	return head.State.Copy()
}

// GetCanonicalHeadScore gets the score of the canonical head.
func (c *BeaconChain) GetCanonicalHeadScore() *big.Int {
	head := c.currentHead()
	if head == nil {
		return nil
	}
	return new(big.Int).Set(head.Score)
}

// GetGenesisState gets a copy of the genesis state.
func (c *BeaconChain) GetGenesisState() *primitives.ChainState {
	c.headLock.RLock()
	defer c.headLock.RUnlock()
	if c.genesisState == nil {
		return nil
	}
	return c.genesisState.Copy()
}

// Blocks gets the block store of the chain.
func (c *BeaconChain) Blocks() *db.BlockStore {
	return c.blocks
}

// States gets the state store of the chain.
func (c *BeaconChain) States() *db.StateStore {
	return c.states
}

// GetState gets the state after a stored block, or the genesis state for the
// genesis stub.
func (c *BeaconChain) GetState(block *primitives.Block) (*primitives.ChainState, error) {
	state, err := c.pullState(block, c.currentHead())
	if err != nil {
		return nil, err
	}
	return state.Copy(), nil
}

func (c *BeaconChain) pullParent(block *primitives.Block, head *ScoredHead) (*primitives.Block, error) {
	if block.IsParentEmpty() {
		return primitives.GenesisBlock(), nil
	}

	if head.Block.IsParentOf(block) {
		return head.Block, nil
	}

	return c.blocks.GetByHash(block.ParentHash)
}

func (c *BeaconChain) pullState(block *primitives.Block, head *ScoredHead) (*primitives.ChainState, error) {
	if block.IsGenesis() {
		return c.GetGenesisState(), nil
	}

	if head != nil && head.Block.Hash() == block.Hash() {
		return head.State, nil
	}

	return c.states.Get(block.StateRoot)
}

// Insert validates a block, applies it and stores it. Blocks are processed
// one at a time. Rejected blocks are reported through the result and leave
// the chain untouched; an error means the block could not be processed.
func (c *BeaconChain) Insert(block *primitives.Block) (ProcessingResult, error) {
	c.insertLock.Lock()
	defer c.insertLock.Unlock()

	start := time.Now()
	defer func() {
		insertDuration.Observe(time.Since(start).Seconds())
	}()

	head := c.currentHead()
	if head == nil {
		return 0, ErrNotInitialized
	}

	vRes, err := c.beaconValidator.ValidateAndLog(block)
	if err != nil {
		return 0, errors.Wrap(err, "could not validate block")
	}
	if vRes != Success {
		return c.rejected(ResultFromValidation(vRes)), nil
	}

	parent, err := c.pullParent(block, head)
	if err != nil {
		return 0, errors.Wrapf(err, "could not load parent of %s", block)
	}

	parentState, err := c.pullState(parent, head)
	if err != nil {
		return 0, errors.Wrapf(err, "could not load state of %s", parent)
	}

	newState, err := c.transition.ApplyBlock(block, parentState)
	if err != nil {
		return 0, errors.Wrapf(err, "could not apply %s", block)
	}

	if vRes := c.stateValidator.ValidateAndLog(block, newState); vRes != Success {
		return c.rejected(ResultFromValidation(vRes)), nil
	}

	newHead := &ScoredHead{
		Block: block,
		Score: c.score(block, newState),
		State: newState,
	}

	better := head.ShouldReorgTo(newHead)
	extension := head.IsParentOf(newHead)

	err = c.database.Update(func(txn db.KeyValueStore) error {
		if _, err := c.states.WithTx(txn).Insert(newState); err != nil {
			return errors.Wrap(err, "could not store state")
		}

		blocks := c.blocks.WithTx(txn)
		if err := blocks.Save(block, newHead.Score, better && extension); err != nil {
			return errors.Wrap(err, "could not store block")
		}

		if better && !extension {
			if err := blocks.ReorgTo(block); err != nil {
				return errors.Wrap(err, "could not reorganize chain")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	res := NotBest
	if better {
		c.headLock.Lock()
		c.head = newHead
		c.headLock.Unlock()

		res = Best
		headSlot.Set(float64(block.Slot))
		if !extension {
			reorgCount.Inc()
		}
	}
	processedBlocks.WithLabelValues(res.String()).Inc()

	c.events.publish(BlockProcessed{Block: block, State: newState.Copy(), Best: res == Best})

	log.WithFields(logrus.Fields{
		"block":  block.String(),
		"score":  newHead.Score,
		"result": res,
	}).Info("processed block")

	return res, nil
}

func (c *BeaconChain) rejected(res ProcessingResult) ProcessingResult {
	processedBlocks.WithLabelValues(res.String()).Inc()
	return res
}
