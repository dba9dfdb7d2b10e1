package aggregate

import (
	"sort"
	"time"

	"github.com/peterhagen/jobpulse/internal/enrich"
)

// OverallCategory is the synthetic category holding every posting.
const OverallCategory = "All"

const (
	shortWindowDays = 7
	longWindowDays  = 30
	skillDateDays   = 30

	topSkillsOverall     = 100
	topSkillsPerCategory = 20
	topSkillsPerDate     = 10
)

// DailyCount is one day of a category's posting series with trailing
// rolling averages.
type DailyCount struct {
	Date      string  `json:"date"`
	Count     int     `json:"count"`
	Rolling7  float64 `json:"rolling_7"`
	Rolling30 float64 `json:"rolling_30"`
}

// SkillCount pairs a skill with its posting count.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// CompanyStat summarizes one company's presence in the corpus. Salary
// averages cover only postings that state the bound; primary location and
// category are the most common values, ties resolving alphabetically.
type CompanyStat struct {
	Company         string   `json:"company"`
	Count           int      `json:"count"`
	AvgSalaryMin    *float64 `json:"avg_salary_min"`
	AvgSalaryMax    *float64 `json:"avg_salary_max"`
	PrimaryLocation string   `json:"primary_location"`
	PrimaryCategory string   `json:"primary_category"`
	FirstPosted     string   `json:"first_posted"`
	LastPosted      string   `json:"last_posted"`
}

// SkillSummary holds skill frequencies at several granularities.
type SkillSummary struct {
	Overall    []SkillCount
	ByCategory map[string][]SkillCount
	ByDate     map[string][]SkillCount // last 30 days relative to the latest posting
	Daily      map[string]map[string]int
}

// Aggregate is the full set of derived series for one corpus snapshot.
// Building it is pure: the same postings always produce the same result.
type Aggregate struct {
	Series    map[string][]DailyCount // category -> points sorted by date, includes OverallCategory
	Skills    SkillSummary
	Companies []CompanyStat
}

// Build derives all series from enriched postings. Postings without a valid
// posted date carry no trend signal and are excluded.
func Build(postings []enrich.EnrichedPosting) *Aggregate {
	agg := &Aggregate{
		Series: make(map[string][]DailyCount),
		Skills: SkillSummary{
			ByCategory: make(map[string][]SkillCount),
			ByDate:     make(map[string][]SkillCount),
			Daily:      make(map[string]map[string]int),
		},
	}

	counts := make(map[string]map[string]int) // category -> date -> count
	skillTotals := make(map[string]int)
	skillByCategory := make(map[string]map[string]int)
	skillByDate := make(map[string]map[string]int) // date -> skill -> count
	companies := make(map[string]*companyAccum)
	latest := ""

	for _, p := range postings {
		date := p.PostedDate
		if !validDate(date) {
			continue
		}
		if date > latest {
			latest = date
		}

		for _, category := range []string{OverallCategory, p.Category} {
			if counts[category] == nil {
				counts[category] = make(map[string]int)
			}
			counts[category][date]++
		}

		for _, skill := range p.Skills {
			skillTotals[skill]++
			if skillByCategory[p.Category] == nil {
				skillByCategory[p.Category] = make(map[string]int)
			}
			skillByCategory[p.Category][skill]++
			if skillByDate[date] == nil {
				skillByDate[date] = make(map[string]int)
			}
			skillByDate[date][skill]++
			if agg.Skills.Daily[skill] == nil {
				agg.Skills.Daily[skill] = make(map[string]int)
			}
			agg.Skills.Daily[skill][date]++
		}

		if p.Company != "" {
			acc := companies[p.Company]
			if acc == nil {
				acc = newCompanyAccum()
				companies[p.Company] = acc
			}
			acc.add(p, date)
		}
	}

	for category, byDate := range counts {
		agg.Series[category] = buildSeries(byDate)
	}

	agg.Skills.Overall = topSkills(skillTotals, topSkillsOverall)
	for category, totals := range skillByCategory {
		agg.Skills.ByCategory[category] = topSkills(totals, topSkillsPerCategory)
	}
	if latest != "" {
		cutoff := shiftDate(latest, -skillDateDays+1)
		for date, totals := range skillByDate {
			if date >= cutoff {
				agg.Skills.ByDate[date] = topSkills(totals, topSkillsPerDate)
			}
		}
	}

	for company, acc := range companies {
		agg.Companies = append(agg.Companies, acc.stat(company))
	}
	sort.Slice(agg.Companies, func(i, j int) bool {
		if agg.Companies[i].Count != agg.Companies[j].Count {
			return agg.Companies[i].Count > agg.Companies[j].Count
		}
		return agg.Companies[i].Company < agg.Companies[j].Company
	})

	return agg
}

// Categories returns every category with a series, overall first, the rest
// sorted alphabetically.
func (a *Aggregate) Categories() []string {
	var categories []string
	for c := range a.Series {
		if c != OverallCategory {
			categories = append(categories, c)
		}
	}
	sort.Strings(categories)
	if _, ok := a.Series[OverallCategory]; ok {
		return append([]string{OverallCategory}, categories...)
	}
	return categories
}

// Overall returns the series covering all postings.
func (a *Aggregate) Overall() []DailyCount {
	return a.Series[OverallCategory]
}

// buildSeries turns a date->count map into a sorted series with rolling
// averages. Windows are calendar windows: the mean is taken over days that
// have data inside the window, so gaps dilute nothing and are never
// zero-filled.
func buildSeries(byDate map[string]int) []DailyCount {
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	series := make([]DailyCount, len(dates))
	for i, date := range dates {
		series[i].Date = date
		series[i].Count = byDate[date]
		series[i].Rolling7 = windowMean(series[:i+1], byDate, date, shortWindowDays)
		series[i].Rolling30 = windowMean(series[:i+1], byDate, date, longWindowDays)
	}
	return series
}

func windowMean(prefix []DailyCount, byDate map[string]int, end string, windowDays int) float64 {
	start := shiftDate(end, -windowDays+1)
	sum, n := 0, 0
	for _, point := range prefix {
		if point.Date >= start && point.Date <= end {
			sum += byDate[point.Date]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// companyAccum collects per-company facts while postings stream through
// Build.
type companyAccum struct {
	count        int
	salaryMinSum float64
	salaryMinN   int
	salaryMaxSum float64
	salaryMaxN   int
	locations    map[string]int
	categories   map[string]int
	first, last  string
}

func newCompanyAccum() *companyAccum {
	return &companyAccum{
		locations:  make(map[string]int),
		categories: make(map[string]int),
	}
}

func (a *companyAccum) add(p enrich.EnrichedPosting, date string) {
	a.count++
	if p.SalaryMin != nil {
		a.salaryMinSum += *p.SalaryMin
		a.salaryMinN++
	}
	if p.SalaryMax != nil {
		a.salaryMaxSum += *p.SalaryMax
		a.salaryMaxN++
	}
	if p.Location != "" {
		a.locations[p.Location]++
	}
	if p.Category != "" {
		a.categories[p.Category]++
	}
	if a.first == "" || date < a.first {
		a.first = date
	}
	if date > a.last {
		a.last = date
	}
}

func (a *companyAccum) stat(company string) CompanyStat {
	s := CompanyStat{
		Company:         company,
		Count:           a.count,
		PrimaryLocation: mode(a.locations),
		PrimaryCategory: mode(a.categories),
		FirstPosted:     a.first,
		LastPosted:      a.last,
	}
	if a.salaryMinN > 0 {
		avg := a.salaryMinSum / float64(a.salaryMinN)
		s.AvgSalaryMin = &avg
	}
	if a.salaryMaxN > 0 {
		avg := a.salaryMaxSum / float64(a.salaryMaxN)
		s.AvgSalaryMax = &avg
	}
	return s
}

// mode returns the most frequent key, ties resolving alphabetically, or
// "Unknown" for an empty map.
func mode(counts map[string]int) string {
	best, bestN := "", 0
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	if best == "" {
		return "Unknown"
	}
	return best
}

func topSkills(totals map[string]int, limit int) []SkillCount {
	skills := make([]SkillCount, 0, len(totals))
	for skill, count := range totals {
		skills = append(skills, SkillCount{Skill: skill, Count: count})
	}
	sort.Slice(skills, func(i, j int) bool {
		if skills[i].Count != skills[j].Count {
			return skills[i].Count > skills[j].Count
		}
		return skills[i].Skill < skills[j].Skill
	})
	if len(skills) > limit {
		skills = skills[:limit]
	}
	return skills
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func shiftDate(date string, days int) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format("2006-01-02")
}
