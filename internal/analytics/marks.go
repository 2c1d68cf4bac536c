package analytics

import (
	"sort"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
	"github.com/noah-isme/sma-analytics-api/internal/models"
)

const (
	performerLimit = 5
	subjectLimit   = 3
)

// Outcome classifies how a marks entry counts toward totals.
type Outcome int

const (
	// OutcomeScored entries contribute obtained and max marks.
	OutcomeScored Outcome = iota
	// OutcomeAbsent entries contribute full max marks and nothing obtained.
	OutcomeAbsent
	// OutcomeMissing entries have no marks recorded and are left out of both totals.
	OutcomeMissing
)

// Classify returns the outcome of entry. Absence wins over any recorded marks.
func Classify(entry models.MarksEntry) Outcome {
	switch {
	case entry.IsAbsent:
		return OutcomeAbsent
	case entry.MarksObtained == nil:
		return OutcomeMissing
	default:
		return OutcomeScored
	}
}

// EntryPercent is the percent of a single entry. Absent and missing entries yield nil.
func EntryPercent(entry models.MarksEntry) *float64 {
	if Classify(entry) != OutcomeScored {
		return nil
	}
	return Percent(*entry.MarksObtained, entry.MaxMarks)
}

// Tally accumulates marks totals for one scope.
type Tally struct {
	Obtained float64
	Max      float64
	Entries  int
	Absent   int
	Missing  int
}

// Add folds entry into the tally.
func (t *Tally) Add(entry models.MarksEntry) {
	t.Entries++
	switch Classify(entry) {
	case OutcomeAbsent:
		t.Absent++
		t.Max += entry.MaxMarks
	case OutcomeMissing:
		t.Missing++
	default:
		t.Obtained += *entry.MarksObtained
		t.Max += entry.MaxMarks
	}
}

// Percent is obtained over max, nil when nothing counted toward max.
func (t Tally) Percent() *float64 {
	return Percent(t.Obtained, t.Max)
}

// FullyAbsent reports a scope where every entry was marked absent.
func (t Tally) FullyAbsent() bool {
	return t.Entries > 0 && t.Absent == t.Entries
}

// BuildClassExamReport aggregates the marks of one exam scope over the class roster. Students
// listed in optedOut are dropped from the roster entirely. The subject breakdown is computed
// only when includeSubjects is set. Class, exam and subject metadata are left for the caller.
func BuildClassExamReport(students []models.RosterStudent, entries []models.MarksEntry, optedOut map[int64]struct{}, includeSubjects bool) dto.ClassExamReport {
	byStudent := make(map[int64]*Tally, len(students))
	for _, entry := range entries {
		t, ok := byStudent[entry.StudentID]
		if !ok {
			t = &Tally{}
			byStudent[entry.StudentID] = t
		}
		t.Add(entry)
	}

	report := dto.ClassExamReport{
		Students:         make([]dto.StudentResult, 0, len(students)),
		TopPerformers:    []dto.StudentResult{},
		BottomPerformers: []dto.StudentResult{},
	}

	scored := make([]dto.StudentResult, 0, len(students))
	percents := make([]*float64, 0, len(students))
	for _, student := range students {
		if _, skip := optedOut[student.ID]; skip {
			continue
		}

		tally := Tally{}
		if t, ok := byStudent[student.ID]; ok {
			tally = *t
		}

		result := dto.StudentResult{
			StudentID:     student.ID,
			FirstName:     student.FirstName,
			LastName:      student.LastName,
			RollNo:        student.RollNo,
			MaxTotal:      tally.Max,
			ObtainedTotal: tally.Obtained,
			EntryCount:    tally.Entries,
			AbsentCount:   tally.Absent,
			MissingCount:  tally.Missing,
		}

		switch {
		case tally.FullyAbsent():
			result.IsAbsent = true
			report.Summary.AbsentCount++
		default:
			result.Percent = tally.Percent()
			if result.Percent == nil {
				report.Summary.MissingCount++
			} else {
				scored = append(scored, result)
				if Passed(*result.Percent) {
					report.Summary.PassCount++
				} else {
					report.Summary.FailCount++
				}
			}
		}

		percents = append(percents, result.Percent)
		report.Students = append(report.Students, result)
	}
	report.Summary.TotalStudents = len(report.Students)

	scoredPercents := make([]*float64, 0, len(scored))
	for _, result := range scored {
		p := *result.Percent
		scoredPercents = append(scoredPercents, result.Percent)
		if report.Summary.HighestPercent == nil || p > *report.Summary.HighestPercent {
			report.Summary.HighestPercent = Float(p)
		}
		if report.Summary.LowestPercent == nil || p < *report.Summary.LowestPercent {
			report.Summary.LowestPercent = Float(p)
		}
	}
	report.Summary.AveragePercent = Average(scoredPercents)

	report.TopPerformers = rankStudents(scored, true)
	report.BottomPerformers = rankStudents(scored, false)
	report.Distribution = BucketDistribution(percents)

	if includeSubjects {
		report.SubjectBreakdown = SubjectBreakdown(entries)
	} else {
		report.SubjectBreakdown = []dto.SubjectAverage{}
	}

	return report
}

func rankStudents(scored []dto.StudentResult, descending bool) []dto.StudentResult {
	ranked := make([]dto.StudentResult, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		if descending {
			return *ranked[i].Percent > *ranked[j].Percent
		}
		return *ranked[i].Percent < *ranked[j].Percent
	})
	if len(ranked) > performerLimit {
		ranked = ranked[:performerLimit]
	}
	return ranked
}

// SubjectBreakdown averages per-entry percents by subject, ordered by subject name then id.
// Absent and missing entries contribute nil and do not move the average.
func SubjectBreakdown(entries []models.MarksEntry) []dto.SubjectAverage {
	type subjectGroup struct {
		id       int64
		name     string
		percents []*float64
	}

	groups := make(map[int64]*subjectGroup)
	for _, entry := range entries {
		g, ok := groups[entry.SubjectID]
		if !ok {
			g = &subjectGroup{id: entry.SubjectID, name: entry.SubjectName}
			groups[entry.SubjectID] = g
		}
		g.percents = append(g.percents, EntryPercent(entry))
	}

	breakdown := make([]dto.SubjectAverage, 0, len(groups))
	for _, g := range groups {
		breakdown = append(breakdown, dto.SubjectAverage{
			SubjectID:   g.id,
			SubjectName: g.name,
			AvgPercent:  Average(g.percents),
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].SubjectName != breakdown[j].SubjectName {
			return breakdown[i].SubjectName < breakdown[j].SubjectName
		}
		return breakdown[i].SubjectID < breakdown[j].SubjectID
	})
	return breakdown
}

// BuildMarksTimeline groups a student's entries per exam and per subject. Exam rows are sorted
// by start date with undated exams last and ties broken by exam id.
func BuildMarksTimeline(entries []models.MarksEntry) dto.MarksTimeline {
	type examGroup struct {
		row   dto.ExamResult
		tally Tally
	}
	type subjectGroup struct {
		row   dto.SubjectResult
		tally Tally
	}

	exams := make(map[int64]*examGroup)
	subjects := make(map[int64]*subjectGroup)
	absences := make([]models.MarksEntry, 0)

	for _, entry := range entries {
		eg, ok := exams[entry.ExamID]
		if !ok {
			eg = &examGroup{row: dto.ExamResult{
				ExamID:    entry.ExamID,
				ExamName:  entry.ExamName,
				StartDate: entry.ExamStartDate,
			}}
			exams[entry.ExamID] = eg
		}
		eg.tally.Add(entry)

		sg, ok := subjects[entry.SubjectID]
		if !ok {
			sg = &subjectGroup{row: dto.SubjectResult{
				SubjectID:   entry.SubjectID,
				SubjectName: entry.SubjectName,
			}}
			subjects[entry.SubjectID] = sg
		}
		sg.tally.Add(entry)

		if Classify(entry) == OutcomeAbsent {
			absences = append(absences, entry)
		}
	}

	timeline := dto.MarksTimeline{
		Exams:       make([]dto.ExamResult, 0, len(exams)),
		Subjects:    make([]dto.SubjectResult, 0, len(subjects)),
		AbsentExams: make([]dto.AbsentExam, 0, len(absences)),
	}

	for _, eg := range exams {
		row := eg.row
		row.MaxTotal = eg.tally.Max
		row.ObtainedTotal = eg.tally.Obtained
		row.AbsentCount = eg.tally.Absent
		row.MissingCount = eg.tally.Missing
		row.Percent = eg.tally.Percent()
		timeline.Exams = append(timeline.Exams, row)
	}
	sort.Slice(timeline.Exams, func(i, j int) bool {
		return examBefore(timeline.Exams[i], timeline.Exams[j])
	})

	for _, sg := range subjects {
		row := sg.row
		row.MaxTotal = sg.tally.Max
		row.ObtainedTotal = sg.tally.Obtained
		row.AvgPercent = sg.tally.Percent()
		timeline.Subjects = append(timeline.Subjects, row)
	}
	sort.Slice(timeline.Subjects, func(i, j int) bool {
		if timeline.Subjects[i].SubjectName != timeline.Subjects[j].SubjectName {
			return timeline.Subjects[i].SubjectName < timeline.Subjects[j].SubjectName
		}
		return timeline.Subjects[i].SubjectID < timeline.Subjects[j].SubjectID
	})
	timeline.Strengths, timeline.Gaps = rankSubjects(timeline.Subjects)

	order := make(map[int64]int, len(timeline.Exams))
	for i, row := range timeline.Exams {
		order[row.ExamID] = i
	}
	sort.SliceStable(absences, func(i, j int) bool {
		a, b := absences[i], absences[j]
		if order[a.ExamID] != order[b.ExamID] {
			return order[a.ExamID] < order[b.ExamID]
		}
		return a.SubjectName < b.SubjectName
	})
	for _, entry := range absences {
		timeline.AbsentExams = append(timeline.AbsentExams, dto.AbsentExam{
			ExamID:      entry.ExamID,
			ExamName:    entry.ExamName,
			SubjectID:   entry.SubjectID,
			SubjectName: entry.SubjectName,
		})
	}

	timeline.OverallPercent = OverallPercent(timeline.Exams)
	return timeline
}

func examBefore(a, b dto.ExamResult) bool {
	switch {
	case a.StartDate == nil && b.StartDate == nil:
		return a.ExamID < b.ExamID
	case a.StartDate == nil:
		return false
	case b.StartDate == nil:
		return true
	case !a.StartDate.Equal(*b.StartDate):
		return a.StartDate.Before(*b.StartDate)
	default:
		return a.ExamID < b.ExamID
	}
}

// rankSubjects returns the strongest and weakest subjects among those with an average.
func rankSubjects(subjects []dto.SubjectResult) ([]dto.SubjectResult, []dto.SubjectResult) {
	rated := make([]dto.SubjectResult, 0, len(subjects))
	for _, s := range subjects {
		if s.AvgPercent != nil {
			rated = append(rated, s)
		}
	}

	strengths := make([]dto.SubjectResult, len(rated))
	copy(strengths, rated)
	sort.SliceStable(strengths, func(i, j int) bool {
		return *strengths[i].AvgPercent > *strengths[j].AvgPercent
	})

	gaps := make([]dto.SubjectResult, len(rated))
	copy(gaps, rated)
	sort.SliceStable(gaps, func(i, j int) bool {
		return *gaps[i].AvgPercent < *gaps[j].AvgPercent
	})

	if len(strengths) > subjectLimit {
		strengths = strengths[:subjectLimit]
	}
	if len(gaps) > subjectLimit {
		gaps = gaps[:subjectLimit]
	}
	return strengths, gaps
}

// OverallPercent averages the exam row percents, skipping rows without one.
func OverallPercent(rows []dto.ExamResult) *float64 {
	percents := make([]*float64, 0, len(rows))
	for _, row := range rows {
		percents = append(percents, row.Percent)
	}
	return Average(percents)
}
