package http

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/tree"
)

// TreeResponse is the body of GET /tree.
type TreeResponse struct {
	Name      string           `json:"name"`
	Recovered bool             `json:"recovered,omitempty"`
	Document  *schema.Document `json:"document"`
	// Handles maps each document ID to the stable handle of the element.
	Handles   map[int]string `json:"handles"`
	Clipboard string         `json:"clipboard,omitempty"`
}

// DataView is the editable content of a node.
type DataView struct {
	Type      domain.NodeType `json:"type"`
	Speaker   string          `json:"speaker,omitempty"`
	Text      string          `json:"text"`
	Condition string          `json:"condition,omitempty"`
	Action    *domain.Action  `json:"action,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

// NodeResponse describes one element.
type NodeResponse struct {
	Handle   string    `json:"handle"`
	ID       int       `json:"id"`
	Kind     string    `json:"kind"`
	Parent   string    `json:"parent,omitempty"`
	Children []string  `json:"children,omitempty"`
	Target   string    `json:"target,omitempty"`
	Links    []string  `json:"links,omitempty"`
	Data     *DataView `json:"data,omitempty"`
}

// BranchView is one entry of POST /nodes/{ref}/options.
type BranchView struct {
	Handle string    `json:"handle"`
	Target string    `json:"target"`
	Data   *DataView `json:"data"`
}

// DataPatch updates node content. Nil fields are left unchanged.
type DataPatch struct {
	Speaker     *string        `json:"speaker,omitempty"`
	Text        *string        `json:"text,omitempty"`
	Condition   *string        `json:"condition,omitempty"`
	Action      *domain.Action `json:"action,omitempty"`
	ClearAction bool           `json:"clearAction,omitempty"`
	Notes       *string        `json:"notes,omitempty"`
}

// AddNodeRequest is the body of POST /nodes.
type AddNodeRequest struct {
	Parent string     `json:"parent"`
	Type   string     `json:"type"`
	Data   *DataPatch `json:"data,omitempty"`
}

// AddLinkRequest is the body of POST /links.
type AddLinkRequest struct {
	Parent string `json:"parent"`
	Target string `json:"target"`
}

// ReorderRequest is the body of POST /nodes/{ref}/reorder.
type ReorderRequest struct {
	Delta int `json:"delta"`
}

// MoveRequest is the body of POST /nodes/{ref}/move.
type MoveRequest struct {
	Parent string `json:"parent"`
}

// Paste modes.
const (
	PasteLink = "link"
	PasteCopy = "copy"
	PasteMove = "move"
)

// PasteRequest is the body of POST /nodes/{ref}/paste. The clipboard node is pasted under ref.
type PasteRequest struct {
	Mode string `json:"mode"`
}

// OptionsRequest is the body of POST /nodes/{ref}/options.
type OptionsRequest struct {
	State domain.GameState `json:"state"`
}

func dataView(d *domain.NodeData) *DataView {
	if d == nil {
		return nil
	}
	v := &DataView{
		Type:    d.Type(),
		Speaker: d.Speaker,
		Text:    d.Text,
		Action:  d.Action,
		Notes:   d.Notes,
	}
	if d.Condition != nil {
		v.Condition = d.Condition.Expression
	}
	return v
}

func (p *DataPatch) apply(d *domain.NodeData) {
	if p.Speaker != nil {
		d.Speaker = *p.Speaker
	}
	if p.Text != nil {
		d.Text = *p.Text
	}
	if p.Condition != nil {
		d.Condition = &domain.Condition{Expression: *p.Condition}
	}
	if p.ClearAction {
		d.Action = nil
	}
	if p.Action != nil {
		d.Action = p.Action
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
}

func (s *Server) nodeResponse(h tree.Handle) (*NodeResponse, error) {
	t := s.session.Tree
	kind, err := t.Kind(h)
	if err != nil {
		return nil, err
	}
	ids, _ := schema.Assign(t)
	resp := &NodeResponse{Handle: h.String(), ID: ids[h], Kind: kind.String()}

	parent, err := t.Parent(h)
	if err != nil {
		return nil, err
	}
	if !parent.IsZero() {
		resp.Parent = parent.String()
	}

	if kind == tree.KindLink {
		target, err := t.Original(h)
		if err != nil {
			return nil, err
		}
		resp.Target = target.String()
	} else {
		children, err := t.Children(h)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			resp.Children = append(resp.Children, c.String())
		}
		links, err := t.Links(h)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			resp.Links = append(resp.Links, l.String())
		}
		slices.Sort(resp.Links)
	}

	data, err := t.Data(h)
	if err != nil {
		return nil, err
	}
	resp.Data = dataView(data)
	return resp, nil
}

func (s *Server) respondNode(w http.ResponseWriter, status int, h tree.Handle) {
	resp, err := s.nodeResponse(h)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, status, resp)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"app":      "arbor-http",
		"version":  strings.TrimSpace(arbor.Version),
		"tree":     s.session.Name,
		"session":  s.session.ID,
		"elements": s.session.Tree.Len(),
	})
}

// GetTree handles GET /tree.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.session.Export()
	if err != nil {
		s.writeError(w, err)
		return
	}
	_, order := schema.Assign(s.session.Tree)
	handles := make(map[int]string, len(order))
	for id, h := range order {
		handles[id] = h.String()
	}
	resp := TreeResponse{
		Name:      s.session.Name,
		Recovered: s.session.Recovered,
		Document:  doc,
		Handles:   handles,
	}
	if h, ok := s.session.Clipboard(); ok {
		resp.Clipboard = h.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMermaid handles GET /tree/mermaid. The selected and current query parameters
// take comma separated element IDs to highlight.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	overlay, err := parseOverlay(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	out, err := s.mermaid(overlay)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, out)
}

func parseOverlay(r *http.Request) (*graph.Overlay, error) {
	q := r.URL.Query()
	overlay := &graph.Overlay{}
	if raw := q.Get("selected"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("%w: invalid selected id %q", errBadRequest, part)
			}
			overlay.Selected = append(overlay.Selected, id)
		}
	}
	if raw := q.Get("current"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid current id %q", errBadRequest, raw)
		}
		overlay.Current = &id
	}
	return overlay, nil
}

// GetNode handles GET /nodes/{ref}.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pathHandle(w, r)
	if !ok {
		return
	}
	s.respondNode(w, http.StatusOK, h)
}

// AddNode handles POST /nodes.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	typ, err := domain.ParseNodeType(req.Type)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	parent, err := s.resolve(req.Parent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	h, err := s.session.Tree.AddNode(parent, typ)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Data != nil {
		data, err := s.session.Tree.Data(h)
		if err != nil {
			s.writeError(w, err)
			return
		}
		updated := data.Clone()
		req.Data.apply(updated)
		if err := s.session.Tree.SetData(h, updated); err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.respondNode(w, http.StatusCreated, h)
}

// AddLink handles POST /links.
func (s *Server) AddLink(w http.ResponseWriter, r *http.Request) {
	var req AddLinkRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	parent, err := s.resolve(req.Parent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	target, err := s.resolve(req.Target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	h, err := s.session.Tree.AddLink(parent, target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondNode(w, http.StatusCreated, h)
}

// UpdateNode handles PATCH /nodes/{ref}.
func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var patch DataPatch
	if !s.decode(w, r, &patch) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pathHandle(w, r)
	if !ok {
		return
	}
	if s.session.Tree.IsLink(h) {
		s.writeError(w, domain.Violation("update", "links are read-only, edit %s's original", h))
		return
	}
	data, err := s.session.Tree.Data(h)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if data == nil {
		s.writeError(w, domain.Violation("update", "node %s has no content", h))
		return
	}
	updated := data.Clone()
	patch.apply(updated)
	if err := s.session.Tree.SetData(h, updated); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondNode(w, http.StatusOK, h)
}

// RemoveNode handles DELETE /nodes/{ref}.
func (s *Server) RemoveNode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pathHandle(w, r)
	if !ok {
		return
	}
	if err := s.session.Tree.Remove(h); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder handles POST /nodes/{ref}/reorder.
func (s *Server) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pathHandle(w, r)
	if !ok {
		return
	}
	if err := s.session.Tree.ChangePosition(h, req.Delta); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondNode(w, http.StatusOK, h)
}

// MoveNode handles POST /nodes/{ref}/move.
func (s *Server) MoveNode(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pathHandle(w, r)
	if !ok {
		return
	}
	parent, err := s.resolve(req.Parent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.session.Tree.Move(h, parent); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondNode(w, http.StatusOK, h)
}

// CopyNode handles POST /nodes/{ref}/copy.
func (s *Server) CopyNode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pathHandle(w, r)
	if !ok {
		return
	}
	if err := s.session.Copy(h); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Paste handles POST /nodes/{ref}/paste.
func (s *Server) Paste(w http.ResponseWriter, r *http.Request) {
	var req PasteRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.pathHandle(w, r)
	if !ok {
		return
	}

	var (
		h   tree.Handle
		err error
	)
	switch req.Mode {
	case PasteLink:
		h, err = s.session.PasteLink(target)
	case PasteCopy:
		h, err = s.session.PasteCopy(target)
	case PasteMove:
		if err = s.session.MoveHere(target); err == nil {
			h, _ = s.session.Clipboard()
		}
	default:
		err = fmt.Errorf("%w: unknown paste mode %q", errBadRequest, req.Mode)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondNode(w, http.StatusOK, h)
}

// Options handles POST /nodes/{ref}/options.
func (s *Server) Options(w http.ResponseWriter, r *http.Request) {
	var req OptionsRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pathHandle(w, r)
	if !ok {
		return
	}
	branches, err := s.session.Options(r.Context(), h, req.State)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]BranchView, 0, len(branches))
	for _, b := range branches {
		out = append(out, BranchView{
			Handle: b.Handle.String(),
			Target: b.Target.String(),
			Data:   dataView(b.Data),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Visit handles POST /nodes/{ref}/visit.
func (s *Server) Visit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pathHandle(w, r)
	if !ok {
		return
	}
	if err := s.session.Visit(r.Context(), h); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Save handles POST /tree/save.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Save(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reload handles POST /tree/reload. It always replaces the session tree.
func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	if err := s.forceReload(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles GET /events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
