package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WeightPolicy folds the three category percentages into overall progress.
type WeightPolicy func(lessonPct, quizPct, assignmentPct float64) float64

// EqualWeights is the plain mean. Categories without items count as 0.
func EqualWeights(lessonPct, quizPct, assignmentPct float64) float64 {
	return (lessonPct + quizPct + assignmentPct) / 3
}

type ProgressService struct {
	base
	weights WeightPolicy
}

func NewProgressService(db *gorm.DB, log *utils.Logger, weights WeightPolicy, opts ...Option) *ProgressService {
	if weights == nil {
		weights = EqualWeights
	}
	return &ProgressService{base: newBase(db, log, "ProgressService", opts), weights: weights}
}

func percent(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

func (s *ProgressService) SetLessonCompletion(ctx context.Context, userID, lessonID uint, completed bool) (*models.LessonProgress, error) {
	now := s.now()
	row := models.LessonProgress{
		UserID:       userID,
		LessonID:     lessonID,
		Completed:    completed,
		LastViewedAt: now,
	}
	if completed {
		row.CompletedAt = &now
	}
	return s.upsertLesson(ctx, row, []string{"completed", "completed_at", "last_viewed_at", "updated_at"})
}

func (s *ProgressService) RecordLessonView(ctx context.Context, userID, lessonID uint) (*models.LessonProgress, error) {
	row := models.LessonProgress{
		UserID:       userID,
		LessonID:     lessonID,
		LastViewedAt: s.now(),
	}
	return s.upsertLesson(ctx, row, []string{"last_viewed_at", "updated_at"})
}

func (s *ProgressService) upsertLesson(ctx context.Context, row models.LessonProgress, columns []string) (*models.LessonProgress, error) {
	var out models.LessonProgress
	err := s.tx(ctx, func(tx *gorm.DB) error {
		lesson, err := first[models.Lesson](tx, "lesson", row.LessonID)
		if err != nil {
			return err
		}
		if lesson.Status != models.StatusPublished {
			return apperr.New(apperr.NotFound, "lesson %d is not published", row.LessonID)
		}
		if _, err := requireActiveEnrollment(tx, row.UserID, lesson.CourseID, false); err != nil {
			return err
		}
		row.CourseID = lesson.CourseID
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).Create(&row).Error
		if err != nil {
			return internal(err, "save lesson progress")
		}
		if err := tx.Where("user_id = ? AND lesson_id = ?", row.UserID, row.LessonID).First(&out).Error; err != nil {
			return internal(err, "reload lesson progress")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProgressService) ListLessonProgress(ctx context.Context, userID, courseID uint) ([]models.LessonProgress, error) {
	var rows []models.LessonProgress
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("lesson_id").
		Find(&rows).Error
	if err != nil {
		return nil, internal(err, "list lesson progress")
	}
	return rows, nil
}

// CoursePerformance reports one learner's progress in a course. Learners may
// only read their own numbers, and only while enrolled.
func (s *ProgressService) CoursePerformance(ctx context.Context, actor models.Actor, userID, courseID uint) (*models.CoursePerformance, error) {
	db := s.db.WithContext(ctx)
	if _, err := first[models.Course](db, "course", courseID); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleLearner {
		if actor.UserID != userID {
			return nil, apperr.New(apperr.Forbidden, "cannot read another learner's progress")
		}
		if _, err := requireActiveEnrollment(db, userID, courseID, false); err != nil {
			return nil, err
		}
	}
	return s.coursePerformance(ctx, userID, courseID)
}

// coursePerformance reads the three categories independently. The numbers
// are not a consistent snapshot if grading runs concurrently.
func (s *ProgressService) coursePerformance(ctx context.Context, userID, courseID uint) (*models.CoursePerformance, error) {
	perf := &models.CoursePerformance{UserID: userID, CourseID: courseID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.lessonStats(s.db.WithContext(gctx), userID, courseID)
		perf.Lessons = stats
		return err
	})
	g.Go(func() error {
		stats, err := s.quizStats(s.db.WithContext(gctx), userID, courseID)
		perf.Quizzes = stats
		return err
	})
	g.Go(func() error {
		stats, err := s.assignmentStats(s.db.WithContext(gctx), userID, courseID)
		perf.Assignments = stats
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	perf.OverallProgress = s.weights(
		perf.Lessons.CompletionPercentage,
		perf.Quizzes.CompletionPercentage,
		perf.Assignments.CompletionPercentage,
	)
	perf.IsComplete = perf.OverallProgress >= 100
	return perf, nil
}

func (s *ProgressService) lessonStats(db *gorm.DB, userID, courseID uint) (models.LessonStats, error) {
	var stats models.LessonStats
	modules := db.Model(&models.Module{}).Select("id").
		Where("course_id = ? AND status = ?", courseID, models.StatusPublished)
	lessons := db.Model(&models.Lesson{}).Select("id").
		Where("course_id = ? AND status = ? AND module_id IN (?)", courseID, models.StatusPublished, modules)

	var total, done int64
	if err := db.Model(&models.Lesson{}).
		Where("course_id = ? AND status = ? AND module_id IN (?)", courseID, models.StatusPublished, modules).
		Count(&total).Error; err != nil {
		return stats, internal(err, "count lessons")
	}
	if err := db.Model(&models.LessonProgress{}).
		Where("user_id = ? AND completed = ? AND lesson_id IN (?)", userID, true, lessons).
		Count(&done).Error; err != nil {
		return stats, internal(err, "count completed lessons")
	}
	stats.Total = int(total)
	stats.Completed = int(done)
	stats.CompletionPercentage = percent(stats.Completed, stats.Total)
	return stats, nil
}

type aggregate struct {
	N   int64
	Avg float64
}

// quizStats counts a quiz as completed once any attempt is submitted. The
// average covers every submitted attempt, not the best one per quiz.
func (s *ProgressService) quizStats(db *gorm.DB, userID, courseID uint) (models.QuizStats, error) {
	var stats models.QuizStats
	quizzes := db.Model(&models.Quiz{}).Select("id").
		Where("course_id = ? AND status = ?", courseID, models.StatusPublished)

	var total, done int64
	if err := db.Model(&models.Quiz{}).
		Where("course_id = ? AND status = ?", courseID, models.StatusPublished).
		Count(&total).Error; err != nil {
		return stats, internal(err, "count quizzes")
	}
	submitted := func() *gorm.DB {
		return db.Model(&models.QuizAttempt{}).
			Where("user_id = ? AND submitted_at IS NOT NULL AND quiz_id IN (?)", userID, quizzes)
	}
	if err := submitted().Distinct("quiz_id").Count(&done).Error; err != nil {
		return stats, internal(err, "count completed quizzes")
	}
	var agg aggregate
	if err := submitted().Select("COUNT(*) AS n, COALESCE(AVG(percentage), 0) AS avg").Scan(&agg).Error; err != nil {
		return stats, internal(err, "average quiz score")
	}
	stats.Total = int(total)
	stats.Completed = int(done)
	stats.CompletionPercentage = percent(stats.Completed, stats.Total)
	stats.Attempts = int(agg.N)
	stats.AverageScore = agg.Avg
	return stats, nil
}

func (s *ProgressService) assignmentStats(db *gorm.DB, userID, courseID uint) (models.AssignmentStats, error) {
	var stats models.AssignmentStats
	assignments := db.Model(&models.Assignment{}).Select("id").
		Where("course_id = ? AND status = ?", courseID, models.StatusPublished)

	var total, done int64
	if err := db.Model(&models.Assignment{}).
		Where("course_id = ? AND status = ?", courseID, models.StatusPublished).
		Count(&total).Error; err != nil {
		return stats, internal(err, "count assignments")
	}
	if err := db.Model(&models.AssignmentSubmission{}).
		Where("user_id = ? AND status IN ? AND assignment_id IN (?)", userID,
			[]models.SubmissionStatus{models.SubmissionSubmitted, models.SubmissionGraded}, assignments).
		Distinct("assignment_id").
		Count(&done).Error; err != nil {
		return stats, internal(err, "count completed assignments")
	}
	var agg aggregate
	if err := db.Model(&models.AssignmentSubmission{}).
		Joins("JOIN assignments ON assignments.id = assignment_submissions.assignment_id").
		Where("assignment_submissions.user_id = ? AND assignment_submissions.status = ?", userID, models.SubmissionGraded).
		Where("assignments.course_id = ? AND assignments.status = ? AND assignments.max_points > 0", courseID, models.StatusPublished).
		Select("COUNT(*) AS n, COALESCE(AVG(assignment_submissions.grade * 100.0 / assignments.max_points), 0) AS avg").
		Scan(&agg).Error; err != nil {
		return stats, internal(err, "average assignment grade")
	}
	stats.Total = int(total)
	stats.Completed = int(done)
	stats.CompletionPercentage = percent(stats.Completed, stats.Total)
	stats.Graded = int(agg.N)
	stats.AverageGrade = agg.Avg
	return stats, nil
}

// PlatformProgress averages overall progress across the learner's active
// enrollments.
func (s *ProgressService) PlatformProgress(ctx context.Context, userID uint) (*models.PlatformProgress, error) {
	var enrollments []models.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.EnrollmentActive).
		Order("course_id").
		Find(&enrollments).Error
	if err != nil {
		return nil, internal(err, "list enrollments")
	}

	out := &models.PlatformProgress{
		UserID:        userID,
		ActiveCourses: len(enrollments),
		Courses:       make([]models.CoursePerformance, len(enrollments)),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, e := range enrollments {
		i, courseID := i, e.CourseID
		g.Go(func() error {
			perf, err := s.coursePerformance(gctx, userID, courseID)
			if err != nil {
				return err
			}
			out.Courses[i] = *perf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sum float64
	for _, c := range out.Courses {
		sum += c.OverallProgress
		if c.IsComplete {
			out.CompletedCourses++
		}
	}
	if len(out.Courses) > 0 {
		out.OverallProgress = sum / float64(len(out.Courses))
	}
	return out, nil
}

// CourseAnalytics computes performance for every active learner of a course.
func (s *ProgressService) CourseAnalytics(ctx context.Context, actor models.Actor, courseID uint) (*models.CourseAnalytics, error) {
	course, err := ownedCourse(s.db.WithContext(ctx), actor, courseID)
	if err != nil {
		return nil, err
	}
	var userIDs []uint
	err = s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, models.EnrollmentActive).
		Order("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, internal(err, "list learners")
	}

	out := &models.CourseAnalytics{
		CourseID:    course.ID,
		CourseTitle: course.Title,
		Enrolled:    len(userIDs),
		Learners:    make([]models.CoursePerformance, len(userIDs)),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, userID := range userIDs {
		i, userID := i, userID
		g.Go(func() error {
			perf, err := s.coursePerformance(gctx, userID, courseID)
			if err != nil {
				return err
			}
			out.Learners[i] = *perf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sum float64
	for _, l := range out.Learners {
		sum += l.OverallProgress
		if l.IsComplete {
			out.Completed++
		}
	}
	if len(out.Learners) > 0 {
		out.AverageProgress = sum / float64(len(out.Learners))
	}
	return out, nil
}

// CompleteCourse closes the enrollment once overall progress reaches 100.
func (s *ProgressService) CompleteCourse(ctx context.Context, userID, courseID uint) (*models.CoursePerformance, error) {
	perf, err := s.CoursePerformance(ctx, models.Actor{UserID: userID, Role: models.RoleLearner}, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !perf.IsComplete {
		return nil, apperr.New(apperr.ValidationFailed, "course %d is %.2f%% complete", courseID, perf.OverallProgress)
	}
	err = s.tx(ctx, func(tx *gorm.DB) error {
		e, err := requireActiveEnrollment(tx, userID, courseID, true)
		if err != nil {
			return err
		}
		return tx.Model(e).Updates(map[string]interface{}{
			"status":       models.EnrollmentCompleted,
			"completed_at": s.now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Course completed", "user_id", userID, "course_id", courseID)
	return perf, nil
}

// UpdateGuideStep marks one step of a guide done or undone.
func (s *ProgressService) UpdateGuideStep(ctx context.Context, userID uint, guideID string, step, totalSteps int, done bool) (*models.GuideProgress, error) {
	if guideID == "" {
		return nil, apperr.New(apperr.ValidationFailed, "guide id is required")
	}
	if totalSteps < 1 {
		return nil, apperr.New(apperr.ValidationFailed, "total_steps must be at least 1")
	}
	if step < 0 || step >= totalSteps {
		return nil, apperr.New(apperr.ValidationFailed, "step %d is out of range for %d steps", step, totalSteps)
	}

	var gp models.GuideProgress
	err := s.tx(ctx, func(tx *gorm.DB) error {
		err := forUpdate(tx).Where("user_id = ? AND guide_id = ?", userID, guideID).First(&gp).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return internal(err, "load guide progress")
		}
		steps, err := decodeSteps(gp.CompletedSteps)
		if err != nil {
			return err
		}
		if done {
			steps[step] = struct{}{}
		} else {
			delete(steps, step)
		}
		for st := range steps {
			if st >= totalSteps {
				delete(steps, st)
			}
		}

		gp.UserID = userID
		gp.GuideID = guideID
		gp.CompletedSteps = encodeSteps(steps)
		gp.TotalSteps = totalSteps
		gp.Completed = len(steps) == totalSteps
		if err := tx.Save(&gp).Error; err != nil {
			return internal(err, "save guide progress")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &gp, nil
}

func (s *ProgressService) GetGuideProgress(ctx context.Context, userID uint, guideID string) (*models.GuideProgress, error) {
	var gp models.GuideProgress
	err := s.db.WithContext(ctx).Where("user_id = ? AND guide_id = ?", userID, guideID).First(&gp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "no progress for guide %s", guideID)
	}
	if err != nil {
		return nil, internal(err, "load guide progress")
	}
	return &gp, nil
}

func decodeSteps(raw datatypes.JSON) (map[int]struct{}, error) {
	set := map[int]struct{}{}
	if len(raw) == 0 {
		return set, nil
	}
	var list []int
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "malformed guide steps")
	}
	for _, st := range list {
		set[st] = struct{}{}
	}
	return set, nil
}

func encodeSteps(set map[int]struct{}) datatypes.JSON {
	list := make([]int, 0, len(set))
	for st := range set {
		list = append(list, st)
	}
	sort.Ints(list)
	b, _ := json.Marshal(list)
	return datatypes.JSON(b)
}
