package server

import (
	"net/http"

	"github.com/me/makespan/pkg/model"
)

func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	upper, lower := s.bounds.Get()
	respondOK(w, reqID, model.BoundsView{
		Upper:        upper,
		Lower:        lower,
		KnownOptimum: s.bounds.KnownOptimum(),
	})
}

func (s *Server) handleListSolutions(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts, apiErr := listOptions(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	sols := s.solutions.BestN(opts.Offset + opts.Limit)
	views := []model.SolutionView{}
	for i := opts.Offset; i < len(sols); i++ {
		views = append(views, sols[i].View(i, s.input))
	}
	total := s.solutions.Count()
	respondList(w, reqID, views, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+opts.Limit < total,
	})
}

func (s *Server) handleBestSolution(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	best := s.solutions.Best()
	if best == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("solution", "best"))
		return
	}
	respondOK(w, reqID, best.View(0, s.input))
}
