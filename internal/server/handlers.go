package server

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zerotable/zerotable/internal/catalog"
	"github.com/zerotable/zerotable/internal/errors"
	"github.com/zerotable/zerotable/internal/id"
	"github.com/zerotable/zerotable/internal/keys"
	"github.com/zerotable/zerotable/internal/zql"
)

type updateRequest struct {
	Fields map[string]any `json:"fields"`
	Where  string         `json:"where,omitempty"`
}

type queryRequest struct {
	Query       string         `json:"query"`
	Bindings    map[string]any `json:"bindings,omitempty"`
	Parent      map[string]any `json:"parent,omitempty"`
	Grandparent map[string]any `json:"grandparent,omitempty"`
}

type queryResult struct {
	ID       string         `json:"id"`
	Fields   map[string]any `json:"fields,omitempty"`
	Returned map[string]any `json:"returned,omitempty"`
}

func (s *Server) handleCreate(c *gin.Context) {
	start := time.Now()
	collection := c.Param("collection")
	if catalog.Reserved(collection) {
		abortError(c, http.StatusBadRequest, "collection name is reserved")
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		abortError(c, http.StatusBadRequest, errors.ErrInvalidDocument.Error())
		return
	}

	docID := c.Query("documentId")
	if docID == "" {
		u, _ := id.New()
		docID = u.String()
	}

	err := s.cat.Validate(collection, fields)
	if err == nil {
		var doc any
		doc, err = s.eng.Create(collection, docID, fields, id.NowMillis())
		if err == nil {
			c.JSON(http.StatusCreated, doc)
		}
	}
	if err != nil {
		abortWith(c, err)
	}
	s.recordOp("create", err, start)
}

func (s *Server) handleGet(c *gin.Context) {
	start := time.Now()
	doc, err := s.eng.Get(c.Param("collection"), c.Param("id"))
	if err != nil {
		abortWith(c, err)
	} else {
		c.JSON(http.StatusOK, doc)
	}
	s.recordOp("get", err, start)
}

func (s *Server) handleUpdate(c *gin.Context) {
	start := time.Now()
	collection := c.Param("collection")
	if catalog.Reserved(collection) {
		abortError(c, http.StatusBadRequest, "collection name is reserved")
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Fields == nil {
		abortError(c, http.StatusBadRequest, "body must carry a fields object")
		return
	}

	where, err := parseWhere(req.Where)
	if err != nil {
		abortWith(c, err)
		return
	}

	err = s.cat.Validate(collection, req.Fields)
	if err == nil {
		var doc any
		doc, err = s.eng.Update(collection, c.Param("id"), req.Fields, where, id.NowMillis())
		if err == nil {
			c.JSON(http.StatusOK, doc)
		}
	}
	if err != nil {
		abortWith(c, err)
	}
	s.recordOp("update", err, start)
}

func (s *Server) handleDelete(c *gin.Context) {
	start := time.Now()
	collection := c.Param("collection")
	if catalog.Reserved(collection) {
		abortError(c, http.StatusBadRequest, "collection name is reserved")
		return
	}

	where, err := parseWhere(c.Query("where"))
	if err != nil {
		abortWith(c, err)
		return
	}

	err = s.eng.Delete(collection, c.Param("id"), where)
	if err != nil {
		abortWith(c, err)
	} else {
		c.Status(http.StatusNoContent)
	}
	s.recordOp("delete", err, start)
}

func (s *Server) handleQuery(c *gin.Context) {
	start := time.Now()
	collection := c.Param("collection")

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		abortError(c, http.StatusBadRequest, "body must carry a query string")
		return
	}

	if s.metrics != nil {
		if s.cache.Contains(req.Query) {
			s.metrics.PlanCacheHits.Inc()
		} else {
			s.metrics.PlanCacheMisses.Inc()
		}
	}
	q, err := s.cache.Compile(req.Query)
	if err != nil {
		abortWith(c, err)
		s.recordOp("query", err, start)
		return
	}

	opts := &zql.ExecOptions{
		Parent:      req.Parent,
		Grandparent: req.Grandparent,
	}
	if len(req.Bindings) > 0 {
		opts.Bindings = make(map[string]zql.Value, len(req.Bindings))
		for name, raw := range req.Bindings {
			opts.Bindings[name] = zql.FromAny(raw)
		}
	}

	var results []zql.Result
	done := make(chan struct{})
	submitErr := s.pool.Submit(func() {
		defer close(done)
		results, err = s.execute(collection, q, opts)
	})
	if submitErr != nil {
		abortWith(c, errors.ErrQueryBusy)
		s.recordOp("query", errors.ErrQueryBusy, start)
		return
	}
	<-done

	if err != nil {
		abortWith(c, err)
		s.recordOp("query", err, start)
		return
	}

	if len(results) > s.cfg.Query.MaxLimit {
		results = results[:s.cfg.Query.MaxLimit]
	}
	out := make([]queryResult, len(results))
	for i, r := range results {
		out[i] = renderResult(q, r)
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
	s.recordOp("query", nil, start)
}

// execute runs a compiled query over a collection scan, counting scanned
// and matched documents.
func (s *Server) execute(collection string, q *zql.Query, opts *zql.ExecOptions) ([]zql.Result, error) {
	stream, err := s.eng.Scan(collection)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		stream = &countingStream{inner: stream, counted: s.metrics.DocsScanned}
	}
	results, err := zql.Execute(q, stream, opts)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.DocsMatched.Add(float64(len(results)))
	}
	return results, nil
}

func (s *Server) handleSetSchema(c *gin.Context) {
	collection := c.Param("collection")
	if catalog.Reserved(collection) {
		abortError(c, http.StatusBadRequest, "collection name is reserved")
		return
	}
	var schema map[string]any
	if err := c.ShouldBindJSON(&schema); err != nil {
		abortError(c, http.StatusBadRequest, "schema must be a JSON object")
		return
	}
	if err := s.cat.SetSchema(collection, schema); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": collection})
}

func (s *Server) handleGetSchema(c *gin.Context) {
	schema, err := s.cat.GetSchema(c.Param("collection"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

func (s *Server) handleDeleteSchema(c *gin.Context) {
	if err := s.cat.DeleteSchema(c.Param("collection")); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseWhere(text string) (zql.Expr, error) {
	if text == "" {
		return nil, nil
	}
	return zql.ParseFilter(text)
}

// renderResult shapes one executor row for JSON. Queries with a returning
// clause project the requested paths keyed by their dotted spelling;
// everything else returns the full document.
func renderResult(q *zql.Query, r zql.Result) queryResult {
	out := queryResult{ID: r.ID}
	if len(r.Projected) == 0 {
		out.Fields = r.Doc
		return out
	}
	out.Returned = make(map[string]any, len(r.Projected))
	for i := range r.Projected {
		out.Returned[pathKey(&q.Returning[i])] = r.Projected[i].ToAny()
	}
	return out
}

func pathKey(ref *zql.FieldRef) string {
	key := strings.Join(ref.Path, ".")
	switch ref.Scope {
	case zql.ScopeParent:
		return "^" + key
	case zql.ScopeGrandparent:
		return "^^" + key
	default:
		return key
	}
}

// countingStream bumps a counter per candidate pulled from storage.
type countingStream struct {
	inner   zql.DocStream
	counted interface{ Inc() }
}

func (cs *countingStream) Next() (zql.Candidate, error) {
	cand, err := cs.inner.Next()
	if err == nil {
		cs.counted.Inc()
	}
	return cand, err
}

func (cs *countingStream) Close() error { return cs.inner.Close() }

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func abortWith(c *gin.Context, err error) {
	abortError(c, statusFor(err), err.Error())
}

// statusFor maps domain errors onto HTTP statuses. Compilation and
// evaluation failures are the client's fault; precondition misses get 412
// so conditional callers can distinguish them from hard conflicts.
func statusFor(err error) int {
	var lexErr *zql.LexError
	var parseErr *zql.ParseError
	var evalErr *zql.EvalError
	switch {
	case stderrors.As(err, &lexErr),
		stderrors.As(err, &parseErr),
		stderrors.As(err, &evalErr):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrDocNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrDocExists),
		stderrors.Is(err, errors.ErrTxConflict):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case stderrors.Is(err, errors.ErrSchemaViolation):
		return http.StatusUnprocessableEntity
	case stderrors.Is(err, errors.ErrQueryBusy):
		return http.StatusTooManyRequests
	case stderrors.Is(err, errors.ErrInvalidDocument),
		stderrors.Is(err, keys.ErrEmptyPart),
		stderrors.Is(err, keys.ErrInvalidByte),
		stderrors.Is(err, keys.ErrTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
