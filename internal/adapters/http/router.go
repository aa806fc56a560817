package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
	"github.com/changsoo-Shin/ktds-jinseop/internal/core/ports"
	"github.com/changsoo-Shin/ktds-jinseop/internal/observability/metrics"
)

type Router struct {
	ingestor  ports.DocumentIngestor
	picker    ports.QuestionPicker
	composer  ports.ContextComposer
	admin     ports.ExamAdmin
	questions ports.QuestionStore
	exporter  ports.QuestionExporter
	repo      ports.DocumentRepository
	service   string
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	picker ports.QuestionPicker,
	composer ports.ContextComposer,
	admin ports.ExamAdmin,
	questions ports.QuestionStore,
	exporter ports.QuestionExporter,
	repo ports.DocumentRepository,
	service string,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		ingestor:  ingestor,
		picker:    picker,
		composer:  composer,
		admin:     admin,
		questions: questions,
		exporter:  exporter,
		repo:      repo,
		service:   service,
		metrics:   m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/exams/", rt.routeExam)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// routeExam dispatches /v1/exams/{exam}[/rest] by hand; the exam name
// may contain URL-encoded multibyte characters.
func (rt *Router) routeExam(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/v1/exams/")
	exam, rest, _ := strings.Cut(trimmed, "/")

	if decoded, err := url.PathUnescape(exam); err == nil {
		exam = decoded
	}
	if strings.TrimSpace(exam) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exam name is required"})
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodDelete:
		rt.purgeExam(w, r, exam)
	case rest == "documents" && r.Method == http.MethodPost:
		rt.uploadDocument(w, r, exam)
	case rest == "documents" && r.Method == http.MethodGet:
		rt.listDocuments(w, r, exam)
	case rest == "questions/next" && r.Method == http.MethodGet:
		rt.nextQuestion(w, r, exam)
	case rest == "questions/export" && r.Method == http.MethodGet:
		rt.exportQuestions(w, r, exam)
	case rest == "context" && r.Method == http.MethodPost:
		rt.composeContext(w, r, exam)
	case rest == "stats" && r.Method == http.MethodGet:
		rt.examStats(w, r, exam)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request, exam string) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		exam,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request, exam string) {
	docs, err := rt.repo.ListByExam(r.Context(), exam)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) nextQuestion(w http.ResponseWriter, r *http.Request, exam string) {
	question, err := rt.picker.NextExact(r.Context(), exam)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordQuestionServed(rt.service, exam)
	}
	writeJSON(w, http.StatusOK, question)
}

func (rt *Router) composeContext(w http.ResponseWriter, r *http.Request, exam string) {
	var req struct {
		Queries []string `json:"queries"`
		Limit   int      `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	composed, err := rt.composer.Compose(r.Context(), exam, req.Queries, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordComposedContext(rt.service, composed.Gated, len(composed.Meta))
	}
	writeJSON(w, http.StatusOK, composed)
}

func (rt *Router) exportQuestions(w http.ResponseWriter, r *http.Request, exam string) {
	questions, err := rt.questions.List(exam)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(questions) == 0 {
		writeError(w, fmt.Errorf("%w: exam %q has no questions", domain.ErrQuestionNotFound, exam))
		return
	}

	workbook, err := rt.exporter.Export(exam, questions)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exam+"_questions.xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(len(workbook)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func (rt *Router) purgeExam(w http.ResponseWriter, r *http.Request, exam string) {
	result, err := rt.admin.Purge(r.Context(), exam)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordPurgedVectors(rt.service, result.RemovedVectors)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) examStats(w http.ResponseWriter, r *http.Request, exam string) {
	stats, err := rt.admin.Stats(r.Context(), exam)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
