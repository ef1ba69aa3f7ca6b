package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/pipeline"
)

type checkRequest struct {
	Text    string `json:"text"`
	Name    string `json:"name"`
	Archive bool   `json:"archive"`
	NoWeb   bool   `json:"no_web"`
	Summary bool   `json:"summary"` // Reviewer summary, when the server has a provider
}

type checkResponse struct {
	model.Report
	Archived        bool   `json:"archived"`
	AlreadyArchived bool   `json:"already_archived,omitempty"`
	Message         string `json:"message,omitempty"`
}

type recheckRequest struct {
	NoWeb   bool `json:"no_web"`
	Summary bool `json:"summary"`
}

type documentRequest struct {
	Text     string `json:"text"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

type documentInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Segments  int       `json:"segments"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) health(c echo.Context) error {
	count, err := s.svc.Store().Count(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "documents": count})
}

func (s *Server) check(c echo.Context) error {
	var in checkRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if strings.TrimSpace(in.Text) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text is required"})
	}

	result, err := s.svc.Check(c.Request().Context(), pipeline.CheckRequest{
		Text:      in.Text,
		Name:      in.Name,
		Archive:   in.Archive,
		NoWeb:     in.NoWeb,
		Summarize: in.Summary,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, newCheckResponse(result))
}

func (s *Server) checkFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "multipart field \"file\" is required"})
	}
	if fh.Size > s.maxUpload {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
	}

	f, err := fh.Open()
	if err != nil {
		return s.fail(c, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, s.maxUpload))
	if err != nil {
		return s.fail(c, err)
	}

	archive, _ := strconv.ParseBool(c.FormValue("archive"))
	noWeb, _ := strconv.ParseBool(c.FormValue("no_web"))
	summary, _ := strconv.ParseBool(c.FormValue("summary"))

	result, err := s.svc.CheckFile(c.Request().Context(), data, fh.Filename, pipeline.CheckRequest{
		Name:      c.FormValue("name"),
		Archive:   archive,
		NoWeb:     noWeb,
		Summarize: summary,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, newCheckResponse(result))
}

func newCheckResponse(result *pipeline.Result) checkResponse {
	resp := checkResponse{
		Report:          result.Report,
		Archived:        result.Archived,
		AlreadyArchived: result.AlreadyArchived,
	}
	if result.AlreadyArchived {
		resp.Message = "document already exists in the corpus"
	}
	return resp
}

func (s *Server) createDocument(c echo.Context) error {
	var in documentRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}

	res, err := s.svc.Archive(c.Request().Context(), pipeline.ArchiveRequest{
		Text:     in.Text,
		Name:     in.Name,
		Filename: in.Filename,
	})
	if err != nil {
		return s.fail(c, err)
	}
	if res.AlreadyExists {
		return c.JSON(http.StatusConflict, echo.Map{"id": res.ID, "error": "document already exists"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": res.ID, "segments": res.Segments})
}

func (s *Server) listDocuments(c echo.Context) error {
	docs := []documentInfo{}
	for doc, err := range s.svc.Store().QueryAll(c.Request().Context()) {
		if err != nil {
			return s.fail(c, err)
		}
		docs = append(docs, infoFor(doc))
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) getDocument(c echo.Context) error {
	doc, err := s.svc.Store().Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, infoFor(doc))
}

// recheckDocument scores an archived document against the rest of the corpus.
// An empty body is accepted.
func (s *Server) recheckDocument(c echo.Context) error {
	var in recheckRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&in); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
		}
	}

	result, err := s.svc.Recheck(c.Request().Context(), c.Param("id"), pipeline.CheckRequest{
		NoWeb:     in.NoWeb,
		Summarize: in.Summary,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, newCheckResponse(result))
}

func infoFor(doc *model.Document) documentInfo {
	return documentInfo{
		ID:        doc.ID,
		Name:      doc.Name,
		Filename:  doc.Filename,
		Segments:  len(doc.Segments),
		CreatedAt: doc.CreatedAt,
	}
}
