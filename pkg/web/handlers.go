package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mealmind/go-mealmind/pkg/onboarding"
	"github.com/mealmind/go-mealmind/pkg/stt"
)

// statusPayload is the flow state rendered by clients.
type statusPayload struct {
	Complete          bool              `json:"complete"`
	SectionID         string            `json:"section_id,omitempty"`
	SectionTitle      string            `json:"section_title,omitempty"`
	SectionIndex      int               `json:"section_index"`
	QuestionIndex     int               `json:"question_index"`
	Question          *questionPayload  `json:"question,omitempty"`
	AwaitingDetail    string            `json:"awaiting_detail,omitempty"`
	Errors            map[string]string `json:"errors,omitempty"`
	CompletedSections []string          `json:"completed_sections"`
}

type questionPayload struct {
	ID             string              `json:"id"`
	Prompt         string              `json:"prompt"`
	Kind           string              `json:"kind"`
	Options        []onboarding.Option `json:"options,omitempty"`
	Fields         []onboarding.Field  `json:"fields,omitempty"`
	Required       bool                `json:"required"`
	RequiresDetail bool                `json:"requires_detail"`
}

func (s *Server) status() statusPayload {
	snapshot := s.orch.Snapshot()
	payload := statusPayload{
		Complete:          s.orch.Finished(),
		SectionIndex:      snapshot.CurrentSectionIndex,
		QuestionIndex:     snapshot.CurrentQuestionIndex,
		Errors:            s.orch.Errors(),
		CompletedSections: snapshot.CompletedSections,
	}
	if payload.CompletedSections == nil {
		payload.CompletedSections = []string{}
	}

	section, idx, active := s.orch.ActiveSection()
	if !active {
		return payload
	}
	payload.SectionID = section.ID
	payload.SectionTitle = section.Title
	payload.QuestionIndex = idx
	if qid, waiting := s.orch.AwaitingDetail(); waiting {
		payload.AwaitingDetail = qid
	}

	q := section.Questions[idx]
	payload.Question = &questionPayload{
		ID:             q.ID,
		Prompt:         q.Prompt,
		Kind:           q.Kind.String(),
		Options:        q.Options,
		Fields:         q.Fields,
		Required:       q.Required,
		RequiresDetail: q.RequiresDetail,
	}
	return payload
}

// handleStatus returns the current flow state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleResponses returns the aggregated response model.
func (s *Server) handleResponses(c *fiber.Ctx) error {
	return c.JSON(s.orch.Aggregate())
}

// handleSummary returns collected analytics events.
func (s *Server) handleSummary(c *fiber.Ctx) error {
	if s.analytics == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "analytics not configured",
		})
	}
	return c.JSON(s.analytics.Events())
}

// answerRequest is the manual-answer request body.
type answerRequest struct {
	QuestionID string            `json:"question_id"`
	Answer     onboarding.Answer `json:"answer"`
}

// handleAnswer commits a manual answer.
func (s *Server) handleAnswer(c *fiber.Ctx) error {
	var req answerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.orch.Answer(req.QuestionID, req.Answer); err != nil {
		return s.flowError(c, err)
	}
	s.publishProgress()
	return c.JSON(s.status())
}

// toggleRequest flips one multi-select choice.
type toggleRequest struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

func (s *Server) handleToggle(c *fiber.Ctx) error {
	var req toggleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.orch.Toggle(req.QuestionID, req.Value); err != nil {
		return s.flowError(c, err)
	}
	s.publishProgress()
	return c.JSON(s.status())
}

// detailRequest supplies an awaited follow-up detail.
type detailRequest struct {
	Detail string `json:"detail"`
}

func (s *Server) handleDetail(c *fiber.Ctx) error {
	var req detailRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.orch.Detail(req.Detail); err != nil {
		return s.flowError(c, err)
	}
	s.publishProgress()
	return c.JSON(s.status())
}

// transcriptRequest carries client-side recognized text.
type transcriptRequest struct {
	Transcript string `json:"transcript"`
}

func (s *Server) handleTranscript(c *fiber.Ctx) error {
	var req transcriptRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	outcome, err := s.orch.HandleTranscript(c.Context(), req.Transcript)
	if err != nil {
		return s.flowError(c, err)
	}
	s.publishProgress()
	return c.JSON(fiber.Map{
		"committed":    outcome.Committed,
		"matched":      outcome.Matched,
		"retry_prompt": outcome.RetryPrompt,
	})
}

// handleVoice accepts a raw audio upload, transcribes it, and routes the
// transcript into the flow.
func (s *Server) handleVoice(c *fiber.Ctx) error {
	if s.transcriber == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "voice input not available",
		})
	}

	contentType := c.Get(fiber.HeaderContentType)
	if !stt.SupportedContentType(contentType) {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error": "unsupported audio content type",
		})
	}

	audio := c.Body()
	result, err := s.transcriber.Transcribe(c.Context(), audio, contentType)
	if err != nil {
		s.logger.Warn("transcription failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "transcription failed, please retry or type your answer",
		})
	}

	outcome, err := s.orch.HandleTranscript(c.Context(), result.Transcript)
	if err != nil {
		return s.flowError(c, err)
	}
	s.publishProgress()
	return c.JSON(fiber.Map{
		"transcript":   result.Transcript,
		"committed":    outcome.Committed,
		"matched":      outcome.Matched,
		"retry_prompt": outcome.RetryPrompt,
	})
}

// handleNext advances the flow.
func (s *Server) handleNext(c *fiber.Ctx) error {
	if err := s.orch.Next(); err != nil {
		return s.flowError(c, err)
	}
	s.publishProgress()
	return c.JSON(s.status())
}

// handlePrevious steps the flow back.
func (s *Server) handlePrevious(c *fiber.Ctx) error {
	if err := s.orch.Previous(); err != nil {
		return s.flowError(c, err)
	}
	s.publishProgress()
	return c.JSON(s.status())
}

// keyRequest maps a keyboard shortcut event.
type keyRequest struct {
	Key         string `json:"key"`
	InTextInput bool   `json:"in_text_input"`
}

func (s *Server) handleKey(c *fiber.Ctx) error {
	var req keyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.orch.HandleKey(req.Key, req.InTextInput); err != nil {
		return s.flowError(c, err)
	}
	s.publishProgress()
	return c.JSON(s.status())
}

// handleReset clears all progress.
func (s *Server) handleReset(c *fiber.Ctx) error {
	if err := s.orch.Reset(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.publishProgress()
	return c.JSON(s.status())
}

// flowError maps orchestrator errors onto HTTP statuses. Validation and
// navigation failures are client errors; everything else is internal.
func (s *Server) flowError(c *fiber.Ctx, err error) error {
	status := fiber.StatusUnprocessableEntity
	switch {
	case errors.Is(err, onboarding.ErrFlowComplete),
		errors.Is(err, onboarding.ErrSectionIncomplete),
		errors.Is(err, onboarding.ErrCannotGoBack):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
