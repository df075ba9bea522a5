package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/warehouse-planner/internal/algo"
	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// RobotRequest registers a robot.
type RobotRequest struct {
	ID string `json:"id" binding:"required"`
	X  *int   `json:"x" binding:"required"`
	Y  *int   `json:"y" binding:"required"`
}

// PlaceRequest reports an observed robot position.
type PlaceRequest struct {
	X *int `json:"x" binding:"required"`
	Y *int `json:"y" binding:"required"`
}

// RobotResponse is a robot and its cell.
type RobotResponse struct {
	ID     core.RobotID `json:"id"`
	X      int          `json:"x"`
	Y      int          `json:"y"`
	Moving bool         `json:"moving"`
	Idle   bool         `json:"idle"`
}

// GoalRequest is one entry of an ordered assignment.
type GoalRequest struct {
	Robot string `json:"robot"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// NextStepRequest asks for the next move.
type NextStepRequest struct {
	Assignment []GoalRequest `json:"assignment" binding:"required"`
}

// NextStepResponse is the planner's answer.
type NextStepResponse struct {
	Kind      string `json:"kind"`
	Robot     string `json:"robot,omitempty"`
	Direction string `json:"direction,omitempty"`
	Sidestep  bool   `json:"sidestep,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// MoveRequest names a robot and direction for lock and move.
type MoveRequest struct {
	Robot     string          `json:"robot" binding:"required"`
	Direction *core.Direction `json:"direction" binding:"required"`
}

// UnlockRequest names the robot whose move finished.
type UnlockRequest struct {
	Robot string `json:"robot" binding:"required"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.Lock()
	robots := s.fleet.Len()
	moving := s.planner.Ledger().MovingCount()
	s.mu.Unlock()

	body := gin.H{
		"status": "healthy",
		"robots": robots,
		"moving": moving,
	}
	if s.floor != nil {
		body["floor"] = gin.H{"width": s.floor.Width, "height": s.floor.Height}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleListRobots(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.planner.Ledger()
	robots := s.fleet.Robots()
	out := make([]RobotResponse, len(robots))
	for i, r := range robots {
		out[i] = RobotResponse{
			ID:     r.ID,
			X:      r.Location.X,
			Y:      r.Location.Y,
			Moving: ledger.IsMoving(r.ID),
			Idle:   ledger.IsIdle(r.ID),
		}
	}
	c.JSON(http.StatusOK, gin.H{"robots": out, "total": len(out)})
}

func (s *Server) handleAddRobot(c *gin.Context) {
	var req RobotRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := core.At(*req.X, *req.Y)
	if err := s.fleet.Add(core.RobotID(req.ID), at); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RobotResponse{ID: core.RobotID(req.ID), X: at.X, Y: at.Y})
}

func (s *Server) handlePlaceRobot(c *gin.Context) {
	var req PlaceRequest
	if !s.bind(c, &req) {
		return
	}
	id := core.RobotID(c.Param("id"))

	s.mu.Lock()
	defer s.mu.Unlock()

	at := core.At(*req.X, *req.Y)
	if err := s.fleet.Place(id, at); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RobotResponse{
		ID:     id,
		X:      at.X,
		Y:      at.Y,
		Moving: s.planner.Ledger().IsMoving(id),
		Idle:   s.planner.Ledger().IsIdle(id),
	})
}

func (s *Server) handleLedger(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.planner.Ledger().Snapshot())
}

func (s *Server) handleNextStep(c *gin.Context) {
	var req NextStepRequest
	if !s.bind(c, &req) {
		return
	}
	assignment := make(core.Assignment, 0, len(req.Assignment))
	for i, g := range req.Assignment {
		if g.Robot == "" {
			s.writeBadRequest(c, fmt.Errorf("assignment[%d]: robot is required", i))
			return
		}
		assignment = append(assignment, core.Goal{Robot: core.RobotID(g.Robot), Dest: core.At(g.X, g.Y)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.planner.NextStep(assignment)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := NextStepResponse{
		Kind:     res.Kind.String(),
		Robot:    string(res.Robot),
		Sidestep: res.Sidestep,
		Reason:   string(res.Reason),
	}
	if res.Kind == algo.ResultStep {
		out.Direction = res.Direction.String()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleLock(c *gin.Context) {
	var req MoveRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := core.RobotID(req.Robot)
	if err := s.planner.Lock(id, *req.Direction); err != nil {
		s.writeError(c, err)
		return
	}
	target, _ := s.planner.Ledger().Target(id)
	c.JSON(http.StatusOK, gin.H{"robot": id, "reserved": target})
}

func (s *Server) handleUnlock(c *gin.Context) {
	var req UnlockRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := core.RobotID(req.Robot)
	if err := s.planner.Unlock(id); err != nil {
		s.writeError(c, err)
		return
	}
	at, _ := s.fleet.Location(id)
	c.JSON(http.StatusOK, gin.H{"robot": id, "cell": at})
}

// handleMove applies a locked move to the fleet and unlocks the robot.
func (s *Server) handleMove(c *gin.Context) {
	var req MoveRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := core.RobotID(req.Robot)
	from, ok := s.fleet.Location(id)
	if !ok {
		s.writeError(c, fmt.Errorf("move %s: %w", id, algo.ErrUnknownRobot))
		return
	}
	target, locked := s.planner.Ledger().Target(id)
	if !locked {
		s.writeError(c, fmt.Errorf("move %s: %w", id, algo.ErrNotLocked))
		return
	}
	if from.Step(*req.Direction) != target {
		s.writeError(c, fmt.Errorf("move %s %s: reserved %s: %w", id, *req.Direction, target, algo.ErrInvalidMove))
		return
	}
	to, err := s.fleet.Move(id, *req.Direction)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.planner.Unlock(id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"robot": id, "cell": to})
}

func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.writeBadRequest(c, err)
		return false
	}
	return true
}

func (s *Server) writeBadRequest(c *gin.Context, err error) {
	s.logger.Debug("invalid request", zap.Error(err))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
	})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("code", code), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: err.Error()},
	})
}

// statusFor maps planner and fleet errors to an HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrRobotNotFound):
		return http.StatusNotFound, "ROBOT_NOT_FOUND"
	case errors.Is(err, core.ErrDuplicateRobot):
		return http.StatusConflict, "DUPLICATE_ROBOT"
	case errors.Is(err, core.ErrOffFloor):
		return http.StatusBadRequest, "OFF_FLOOR"
	case errors.Is(err, core.ErrCellOccupied):
		return http.StatusConflict, "CELL_OCCUPIED"
	}

	switch algo.KindOf(err) {
	case algo.KindInvalidAssignment:
		return http.StatusBadRequest, "INVALID_ASSIGNMENT"
	case algo.KindUnknownRobot:
		return http.StatusNotFound, "UNKNOWN_ROBOT"
	case algo.KindNotLocked:
		return http.StatusConflict, "NOT_LOCKED"
	case algo.KindAlreadyLocked:
		return http.StatusConflict, "ALREADY_LOCKED"
	case algo.KindInvalidMove:
		return http.StatusConflict, "INVALID_MOVE"
	case algo.KindPathNotFound:
		return http.StatusUnprocessableEntity, "PATH_NOT_FOUND"
	case algo.KindInvariantViolation:
		return http.StatusInternalServerError, "INVARIANT_VIOLATION"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
