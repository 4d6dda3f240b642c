package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/ktweb-minutes/internal/store"
)

// Sortable fields per resource; the first entry is the default order.
var (
	policymakerSortable     = []string{store.OrderAbbreviation, store.OrderName}
	meetingSortable         = []string{store.OrderStartDatetime}
	meetingDocumentSortable = []string{store.OrderOriginID, store.OrderPublishDatetime}
	agendaItemSortable      = []string{store.OrderIndex}
)

func serveList[T, R any](
	s *Server,
	w http.ResponseWriter,
	r *http.Request,
	sortable []string,
	filter func(url.Values, *store.Query) error,
	fetch func(context.Context, store.Query) ([]T, int, error),
	render func(T) R,
) {
	q, err := pageQuery(r, sortable)
	if err == nil && filter != nil {
		err = filter(r.URL.Query(), &q)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, total, err := fetch(r.Context(), q)
	if err != nil {
		s.logger.Error("list failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to list objects")
		return
	}
	objects := make([]R, 0, len(items))
	for _, item := range items {
		objects = append(objects, render(item))
	}
	writeJSON(w, http.StatusOK, ListResponse[R]{Meta: pageMeta(r, q, total), Objects: objects})
}

func serveDetail[T, R any](
	s *Server,
	w http.ResponseWriter,
	r *http.Request,
	fetch func(context.Context, int64) (T, error),
	render func(T) R,
) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	item, err := fetch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.logger.Error("get failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to load object")
		return
	}
	writeJSON(w, http.StatusOK, render(item))
}

func (s *Server) listPolicymakers(w http.ResponseWriter, r *http.Request) {
	serveList(s, w, r, policymakerSortable,
		func(args url.Values, q *store.Query) error {
			q.Abbreviation = args.Get("abbreviation")
			return nil
		},
		s.repo.ListPolicymakers, policymakerResource)
}

func (s *Server) getPolicymaker(w http.ResponseWriter, r *http.Request) {
	serveDetail(s, w, r, s.repo.GetPolicymaker, policymakerResource)
}

func (s *Server) listMeetings(w http.ResponseWriter, r *http.Request) {
	serveList(s, w, r, meetingSortable,
		func(args url.Values, q *store.Query) (err error) {
			q.PolicymakerID, err = idArg(args, "policymaker")
			return err
		},
		s.repo.ListMeetings, meetingResource)
}

func (s *Server) getMeeting(w http.ResponseWriter, r *http.Request) {
	serveDetail(s, w, r, s.repo.GetMeeting, meetingResource)
}

func (s *Server) listMeetingDocuments(w http.ResponseWriter, r *http.Request) {
	serveList(s, w, r, meetingDocumentSortable,
		func(args url.Values, q *store.Query) (err error) {
			if q.MeetingID, err = idArg(args, "meeting"); err != nil {
				return err
			}
			q.PolicymakerID, err = idArg(args, "policymaker")
			return err
		},
		s.repo.ListMeetingDocuments, meetingDocumentResource)
}

func (s *Server) getMeetingDocument(w http.ResponseWriter, r *http.Request) {
	serveDetail(s, w, r, s.repo.GetMeetingDocument, meetingDocumentResource)
}

func (s *Server) listAgendaItems(w http.ResponseWriter, r *http.Request) {
	serveList(s, w, r, agendaItemSortable,
		func(args url.Values, q *store.Query) (err error) {
			q.Dnro = args.Get("dnro")
			q.MeetingDocumentID, err = idArg(args, "meeting_document")
			return err
		},
		s.repo.ListAgendaItems, agendaItemResource)
}

func (s *Server) getAgendaItem(w http.ResponseWriter, r *http.Request) {
	serveDetail(s, w, r, s.repo.GetAgendaItem, agendaItemResource)
}
