package selector

import (
	"runtime"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/spreadinsight/newsbot/internal/news"
)

// MinFilterRunes is the shortest body FilterByCriteria admits.
const MinFilterRunes = 200

// ScoreAll scores every article. Results keep the input order.
func (s *Scorer) ScoreAll(articles []news.Article) []news.Scored {
	out := make([]news.Scored, len(articles))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range articles {
		i := i
		g.Go(func() error {
			out[i] = news.Scored{Article: articles[i], Score: s.Score(articles[i])}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// SelectTop returns the n best articles, highest score first. Ties keep
// their input order. The input slice is not modified.
func (s *Scorer) SelectTop(articles []news.Article, n int) []news.Scored {
	if len(articles) == 0 || n <= 0 {
		return []news.Scored{}
	}

	scored := s.ScoreAll(articles)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if n < len(scored) {
		scored = scored[:n]
	}
	return scored
}

// FilterByCriteria keeps articles that mention a priority keyword, have a body
// of at least MinFilterRunes and cite at least one statistic. It is independent
// of the numeric score.
func (s *Scorer) FilterByCriteria(articles []news.Article) []news.Article {
	out := make([]news.Article, 0, len(articles))
	for _, a := range articles {
		if !s.hasPriorityKeyword(a) {
			continue
		}
		if utf8.RuneCountInString(a.Content) < MinFilterRunes {
			continue
		}
		if !statPattern.MatchString(a.Content) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *Scorer) hasPriorityKeyword(a news.Article) bool {
	for _, kw := range s.terms.PriorityKeywords {
		if strings.Contains(a.Title, kw) || strings.Contains(a.Content, kw) {
			return true
		}
	}
	return false
}
