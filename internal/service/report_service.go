package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-report-api/internal/dto"
	"github.com/noah-isme/attendance-report-api/internal/models"
	"github.com/noah-isme/attendance-report-api/internal/repository"
	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

type relationalStore interface {
	BeginRead(ctx context.Context) (repository.UniversityReader, error)
}

type graphStore interface {
	OpenRead(ctx context.Context) (repository.AttendanceGraphReader, error)
}

type lectureSearcher interface {
	LectureIDsForTerm(ctx context.Context, term string, limit int) ([]int64, error)
}

type studentFactResolver interface {
	ResolveMany(ctx context.Context, studentIDs []int64, withNames bool) (map[int64]models.StudentFacts, error)
}

// ReportService runs the fixed report pipelines across the four stores.
type ReportService struct {
	planner    *ReportPlanner
	relational relationalStore
	graph      graphStore
	search     lectureSearcher
	resolver   studentFactResolver
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(planner *ReportPlanner, relational relationalStore, graph graphStore, search lectureSearcher, resolver studentFactResolver, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if planner == nil {
		planner = NewReportPlanner(nil, 0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		planner:    planner,
		relational: relational,
		graph:      graph,
		search:     search,
		resolver:   resolver,
		metrics:    metrics,
		logger:     logger,
	}
}

// TermReport returns the students with the lowest attendance on lectures whose material matches the term.
func (s *ReportService) TermReport(ctx context.Context, query dto.TermReportQuery) ([]dto.TermAttendanceItem, error) {
	plan, err := s.planner.Plan(Criterion{Kind: ReportKindTerm, Term: query})
	if err != nil {
		return nil, err
	}
	items, err := s.runTerm(ctx, plan)
	s.finish(plan, len(items), err)
	return items, err
}

func (s *ReportService) runTerm(ctx context.Context, plan Plan) ([]dto.TermAttendanceItem, error) {
	empty := []dto.TermAttendanceItem{}

	var lectureIDs []int64
	if err := s.observe(repository.StoreElasticsearch, StageSearchLectures, func() (err error) {
		lectureIDs, err = s.search.LectureIDsForTerm(ctx, plan.Term, plan.SearchLimit)
		return err
	}); err != nil {
		return nil, err
	}
	if len(lectureIDs) == 0 {
		return empty, nil
	}

	graph, err := s.openGraph(ctx)
	if err != nil {
		return nil, err
	}
	defer s.closeGraph(ctx, graph)

	var studentIDs []int64
	if err := s.observe(repository.StoreNeo4j, StageGraphStudents, func() (err error) {
		studentIDs, err = graph.StudentsForLectures(ctx, lectureIDs)
		return err
	}); err != nil {
		return nil, err
	}
	if len(studentIDs) == 0 {
		return empty, nil
	}

	var rows []models.LectureAttendance
	if err := s.withReader(ctx, func(reader repository.UniversityReader) error {
		return s.observe(repository.StorePostgres, StageRelationalAttendance, func() (err error) {
			rows, err = reader.LectureAttendance(ctx, studentIDs, lectureIDs, plan.Window)
			return err
		})
	}); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return empty, nil
	}

	ranked := RankByPercentage(rows, plan.TopK)
	ids := make([]int64, 0, len(ranked))
	for _, row := range ranked {
		ids = append(ids, row.StudentID)
	}
	facts, err := s.resolver.ResolveMany(ctx, ids, false)
	if err != nil {
		return nil, err
	}
	return AssembleTermReport(ranked, plan, facts), nil
}

// CourseReport returns the lectures of a course in a semester with their auditorium suitability.
func (s *ReportService) CourseReport(ctx context.Context, query dto.CourseReportQuery) ([]dto.CourseRequirementItem, error) {
	plan, err := s.planner.Plan(Criterion{Kind: ReportKindCourse, Course: query})
	if err != nil {
		return nil, err
	}
	items, err := s.runCourse(ctx, plan)
	s.finish(plan, len(items), err)
	return items, err
}

func (s *ReportService) runCourse(ctx context.Context, plan Plan) ([]dto.CourseRequirementItem, error) {
	empty := []dto.CourseRequirementItem{}

	var lectures []models.CourseLecture
	if err := s.withReader(ctx, func(reader repository.UniversityReader) error {
		return s.observe(repository.StorePostgres, StageRelationalLectures, func() (err error) {
			lectures, err = reader.LecturesByCourse(ctx, plan.CourseName, plan.Window)
			return err
		})
	}); err != nil {
		return nil, err
	}
	if len(lectures) == 0 {
		return empty, nil
	}

	lectureIDs := distinctLectureIDs(lectures)

	graph, err := s.openGraph(ctx)
	if err != nil {
		return nil, err
	}
	defer s.closeGraph(ctx, graph)

	var counts map[int64]int
	if err := s.observe(repository.StoreNeo4j, StageGraphStudentCounts, func() (err error) {
		counts, err = graph.StudentCountsByLecture(ctx, lectureIDs, plan.Window)
		return err
	}); err != nil {
		return nil, err
	}
	return AssembleCourseReport(lectures, counts, plan), nil
}

// GroupReport returns attended hours of each group member on every course with requirement lectures.
func (s *ReportService) GroupReport(ctx context.Context, query dto.GroupReportQuery) ([]dto.GroupAttendanceItem, error) {
	plan, err := s.planner.Plan(Criterion{Kind: ReportKindGroup, Group: query})
	if err != nil {
		return nil, err
	}
	items, err := s.runGroup(ctx, plan)
	s.finish(plan, len(items), err)
	return items, err
}

// groupAttendance is what the group pipeline gathers while a reader is open.
type groupAttendance struct {
	group         *models.GroupInfo
	courses       map[int64]models.RequirementLecture
	lectureCourse map[int64]int64
	edges         []models.AttendanceEdge
	visits        map[models.StudentSchedule]int
}

func (s *ReportService) runGroup(ctx context.Context, plan Plan) ([]dto.GroupAttendanceItem, error) {
	var ga groupAttendance
	if err := s.withReader(ctx, func(reader repository.UniversityReader) error {
		return s.gatherGroupAttendance(ctx, reader, plan, &ga)
	}); err != nil {
		return nil, err
	}
	if len(ga.edges) == 0 {
		return []dto.GroupAttendanceItem{}, nil
	}

	hours := SumHoursByCourse(ga.edges, ga.visits, ga.lectureCourse)
	studentIDs := make([]int64, 0, len(hours))
	for _, h := range hours {
		studentIDs = append(studentIDs, h.StudentID)
	}
	studentFacts, err := s.resolver.ResolveMany(ctx, studentIDs, true)
	if err != nil {
		return nil, err
	}
	return AssembleGroupReport(*ga.group, hours, ga.courses, studentFacts), nil
}

// gatherGroupAttendance leaves ga.edges empty when the group has nothing to report.
func (s *ReportService) gatherGroupAttendance(ctx context.Context, reader repository.UniversityReader, plan Plan, ga *groupAttendance) error {
	if err := s.observe(repository.StorePostgres, StageRelationalGroup, func() (err error) {
		ga.group, err = reader.GroupByName(ctx, plan.GroupName)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("group %s not found", plan.GroupName))
		}
		return err
	}); err != nil {
		return err
	}

	var requirements []models.RequirementLecture
	if err := s.observe(repository.StorePostgres, StageRelationalRequirements, func() (err error) {
		requirements, err = reader.RequirementLectures(ctx)
		return err
	}); err != nil {
		return err
	}
	if len(requirements) == 0 {
		return nil
	}

	ga.lectureCourse = make(map[int64]int64, len(requirements))
	ga.courses = make(map[int64]models.RequirementLecture)
	lectureIDs := make([]int64, 0, len(requirements))
	for _, req := range requirements {
		if _, dup := ga.lectureCourse[req.LectureID]; dup {
			continue
		}
		ga.lectureCourse[req.LectureID] = req.CourseID
		lectureIDs = append(lectureIDs, req.LectureID)
		if _, ok := ga.courses[req.CourseID]; !ok {
			ga.courses[req.CourseID] = req
		}
	}

	graph, err := s.openGraph(ctx)
	if err != nil {
		return err
	}
	defer s.closeGraph(ctx, graph)

	var edges []models.AttendanceEdge
	if err := s.observe(repository.StoreNeo4j, StageGraphGroupEdges, func() (err error) {
		edges, err = graph.GroupAttendanceEdges(ctx, ga.group.ID, lectureIDs)
		return err
	}); err != nil {
		return err
	}
	edges = requirementEdges(edges, ga.lectureCourse)
	if len(edges) == 0 {
		return nil
	}

	if err := s.observe(repository.StorePostgres, StageRelationalAttendanceFacts, func() (err error) {
		ga.visits, err = reader.AttendedVisitCounts(ctx, UniquePairs(edges))
		return err
	}); err != nil {
		return err
	}
	ga.edges = edges
	return nil
}

// withReader runs stage inside a read-only transaction and releases the
// connection before returning, so later pool users never wait on it.
func (s *ReportService) withReader(ctx context.Context, stage func(repository.UniversityReader) error) error {
	reader, err := s.beginRead(ctx)
	if err != nil {
		return err
	}
	defer s.closeReader(reader)
	return stage(reader)
}

func (s *ReportService) beginRead(ctx context.Context) (repository.UniversityReader, error) {
	var reader repository.UniversityReader
	err := s.observe(repository.StorePostgres, "begin_read", func() (err error) {
		reader, err = s.relational.BeginRead(ctx)
		return err
	})
	return reader, err
}

func (s *ReportService) closeReader(reader repository.UniversityReader) {
	if err := reader.Close(); err != nil {
		s.logger.Warn("close relational reader failed", zap.Error(err))
	}
}

func (s *ReportService) openGraph(ctx context.Context) (repository.AttendanceGraphReader, error) {
	var session repository.AttendanceGraphReader
	err := s.observe(repository.StoreNeo4j, "open_session", func() (err error) {
		session, err = s.graph.OpenRead(ctx)
		return err
	})
	return session, err
}

func (s *ReportService) closeGraph(ctx context.Context, session repository.AttendanceGraphReader) {
	if err := session.Close(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("close graph session failed", zap.Error(err))
	}
}

// observe times one store call and classifies its error against the store.
func (s *ReportService) observe(store string, stage Stage, call func() error) error {
	start := time.Now()
	err := call()
	s.metrics.ObserveStoreCall(store, string(stage), time.Since(start), err)
	if err != nil {
		return appErrors.Classify(store, err)
	}
	return nil
}

func (s *ReportService) finish(plan Plan, rows int, err error) {
	switch {
	case err != nil:
		s.metrics.RecordReport(plan.Kind, "error")
		s.logger.Warn("report failed", zap.String("kind", string(plan.Kind)), zap.Error(err))
	case rows == 0:
		s.metrics.RecordReport(plan.Kind, "empty")
	default:
		s.metrics.RecordReport(plan.Kind, "ok")
		s.logger.Debug("report assembled", zap.String("kind", string(plan.Kind)), zap.Int("rows", rows))
	}
}

func distinctLectureIDs(lectures []models.CourseLecture) []int64 {
	seen := make(map[int64]struct{}, len(lectures))
	ids := make([]int64, 0, len(lectures))
	for _, lecture := range lectures {
		if _, ok := seen[lecture.LectureID]; ok {
			continue
		}
		seen[lecture.LectureID] = struct{}{}
		ids = append(ids, lecture.LectureID)
	}
	return ids
}

func requirementEdges(edges []models.AttendanceEdge, lectureCourse map[int64]int64) []models.AttendanceEdge {
	kept := edges[:0:0]
	for _, edge := range edges {
		if _, ok := lectureCourse[edge.LectureID]; ok {
			kept = append(kept, edge)
		}
	}
	return kept
}
