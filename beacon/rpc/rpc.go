package rpc

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo"
	logger "github.com/sirupsen/logrus"

	"github.com/phoreproject/beaconcore/beacon"
	"github.com/phoreproject/beaconcore/beacon/db"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

var log = logger.WithField("module", "rpc")

// maxBlockSize limits the body of a submitted block.
const maxBlockSize = 1 << 20

// HeadResponse describes the canonical head.
type HeadResponse struct {
	Hash              string `json:"hash"`
	Slot              uint64 `json:"slot"`
	Score             string `json:"score"`
	StateRoot         string `json:"stateRoot"`
	LastJustifiedSlot uint64 `json:"lastJustifiedSlot"`
	LastFinalizedSlot uint64 `json:"lastFinalizedSlot"`
	Validators        int    `json:"validators"`
}

// BlockResponse describes a stored block and its place in the fork tree.
type BlockResponse struct {
	Hash         string   `json:"hash"`
	ParentHash   string   `json:"parentHash"`
	Slot         uint64   `json:"slot"`
	StateRoot    string   `json:"stateRoot"`
	MainChainRef string   `json:"mainChainRef"`
	Attestations int      `json:"attestations"`
	Score        string   `json:"score"`
	Canonical    bool     `json:"canonical"`
	Children     []string `json:"children"`
	Encoded      string   `json:"encoded"`
}

// SubmitResponse is the outcome of a submitted block.
type SubmitResponse struct {
	Hash     string `json:"hash"`
	Result   string `json:"result"`
	Accepted bool   `json:"accepted"`
}

// AssignmentResponse describes the committee a validator is assigned to
// under the current committees.
type AssignmentResponse struct {
	ValidatorIndex uint32 `json:"validatorIndex"`
	ShardID        uint64 `json:"shardID"`
	// next slot after the head the validator attests at
	Slot          uint64 `json:"slot"`
	CommitteeSize int    `json:"committeeSize"`
	Position      int    `json:"position"`
	Proposer      bool   `json:"proposer"`
}

// ProposerResponse describes the validator proposing at a slot.
type ProposerResponse struct {
	Slot           uint64 `json:"slot"`
	ValidatorIndex uint32 `json:"validatorIndex"`
	PubKey         string `json:"pubKey"`
}

// Server serves the beacon chain over HTTP.
type Server struct {
	chain *beacon.BeaconChain
	e     *echo.Echo
}

// NewServer sets up the routes for a chain.
func NewServer(chain *beacon.BeaconChain) *Server {
	s := &Server{
		chain: chain,
		e:     echo.New(),
	}
	s.e.HideBanner = true

	s.e.GET("/head", s.getHead)
	s.e.GET("/block/:hash", s.getBlock)
	s.e.GET("/slot/:slot", s.getSlot)
	s.e.POST("/block", s.submitBlock)
	s.e.GET("/assignment/:pubkey", s.getAssignment)
	s.e.GET("/proposer/:slot", s.getProposer)

	return s
}

// Handler gets the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start listens on the address until Shutdown is called.
func (s *Server) Start(addr string) error {
	log.WithField("addr", addr).Info("serving rpc")
	err := s.e.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) getHead(c echo.Context) error {
	head := s.chain.GetCanonicalHead()
	state := s.chain.GetCanonicalHeadState()

	return c.JSON(http.StatusOK, HeadResponse{
		Hash:              head.Hash().String(),
		Slot:              head.Slot,
		Score:             s.chain.GetCanonicalHeadScore().String(),
		StateRoot:         head.StateRoot.String(),
		LastJustifiedSlot: state.LastJustifiedSlot,
		LastFinalizedSlot: state.LastFinalizedSlot,
		Validators:        state.ValidatorSet.Size(),
	})
}

func (s *Server) blockResponse(c echo.Context, block *primitives.Block) error {
	entry, err := s.chain.Blocks().GetIndexEntry(block.Hash())
	if err != nil {
		return err
	}

	enc, err := block.Encode()
	if err != nil {
		return err
	}

	children := make([]string, len(entry.Children))
	for i := range entry.Children {
		children[i] = entry.Children[i].String()
	}

	return c.JSON(http.StatusOK, BlockResponse{
		Hash:         entry.Hash.String(),
		ParentHash:   block.ParentHash.String(),
		Slot:         block.Slot,
		StateRoot:    block.StateRoot.String(),
		MainChainRef: block.MainChainRef.String(),
		Attestations: len(block.Attestations),
		Score:        entry.Score.String(),
		Canonical:    entry.Canonical,
		Children:     children,
		Encoded:      hex.EncodeToString(enc),
	})
}

func (s *Server) getBlock(c echo.Context) error {
	var h chainhash.Hash
	if err := chainhash.Decode(&h, c.Param("hash")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "block hash is not valid hex")
	}

	block, err := s.chain.Blocks().GetByHash(h)
	if err == db.ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "block not found")
	}
	if err != nil {
		return err
	}

	return s.blockResponse(c, block)
}

func (s *Server) getSlot(c echo.Context) error {
	slot, err := strconv.ParseUint(c.Param("slot"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "slot is not a number")
	}

	block, err := s.chain.Blocks().GetCanonicalBlockBySlot(slot)
	if err == db.ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "no canonical block at slot")
	}
	if err != nil {
		return err
	}

	return s.blockResponse(c, block)
}

// submitBlock inserts a block given as its hex encoding.
func (s *Server) submitBlock(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBlockSize))
	if err != nil {
		return err
	}

	enc, err := hex.DecodeString(string(body))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "block is not valid hex")
	}

	block, err := primitives.DecodeBlock(enc)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := s.chain.Insert(block)
	if err != nil {
		log.WithError(err).WithField("block", block.String()).Warn("could not insert submitted block")
		return err
	}

	status := http.StatusOK
	if !res.IsAccepted() {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, SubmitResponse{
		Hash:     block.Hash().String(),
		Result:   res.String(),
		Accepted: res.IsAccepted(),
	})
}

func (s *Server) getAssignment(c echo.Context) error {
	pubKey, err := hex.DecodeString(c.Param("pubkey"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "public key is not valid hex")
	}

	head := s.chain.GetCanonicalHead()
	state := s.chain.GetCanonicalHeadState()
	cfg := s.chain.GetConfig()

	index, found := state.ValidatorSet.IndexOf(pubKey)
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "validator is not active")
	}

	assignment, found := primitives.ScanCommittees(index, state.Committees)
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "validator is not assigned to a committee")
	}

	slot := cfg.NextAssignedSlot(head.Slot, assignment.SlotOffset)
	proposer, _ := primitives.ProposerIndex(state.Committees, slot)

	return c.JSON(http.StatusOK, AssignmentResponse{
		ValidatorIndex: index,
		ShardID:        assignment.ShardID,
		Slot:           slot,
		CommitteeSize:  assignment.CommitteeSize,
		Position:       assignment.Position,
		Proposer:       proposer == index,
	})
}

func (s *Server) getProposer(c echo.Context) error {
	slot, err := strconv.ParseUint(c.Param("slot"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "slot is not a number")
	}

	state := s.chain.GetCanonicalHeadState()
	shuffling, found := state.ShufflingForSlot(slot, s.chain.GetConfig().CycleLength)
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "no committees for slot")
	}

	index, found := primitives.ProposerIndex(shuffling, slot)
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "no proposer for slot")
	}
	v, found := state.ValidatorSet.Get(index)
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "proposer is not active")
	}

	return c.JSON(http.StatusOK, ProposerResponse{
		Slot:           slot,
		ValidatorIndex: index,
		PubKey:         v.PubKeyHex(),
	})
}
