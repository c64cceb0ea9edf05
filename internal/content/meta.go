package content

import (
	"certprep-study-service/internal/domain"
)

// BaseTitle is appended to every page title.
const BaseTitle = "정보보안기사"

// FullTitle formats a page title the way document metadata shows it.
func FullTitle(title string) string {
	if title == "" {
		return BaseTitle
	}
	return title + " | " + BaseTitle
}

// SubjectMeta describes a subject's quiz landing page.
func (s *Store) SubjectMeta(subject domain.Subject) (domain.PageMeta, error) {
	if !subject.Valid() {
		return domain.PageMeta{}, domain.ErrSubjectNotFound
	}
	return domain.PageMeta{
		Title:       subject.Name() + " - 문제 풀이",
		Description: BaseTitle + " " + subject.Name() + " 과목별 문제 풀이",
	}, nil
}

// ChapterMeta describes one chapter's quiz page.
func (s *Store) ChapterMeta(subject domain.Subject, chapterID string) (domain.PageMeta, error) {
	set, ok := s.Chapter(subject, chapterID)
	if !ok {
		return domain.PageMeta{}, domain.ErrChapterNotFound
	}
	return domain.PageMeta{
		Title:       set.ChapterName + " - " + subject.Name(),
		Description: BaseTitle + " " + subject.Name() + " " + set.ChapterName + " 문제 풀이",
	}, nil
}

// PostMeta describes one theory post page.
func (s *Store) PostMeta(subject domain.Subject, postID string) (domain.PageMeta, error) {
	post, ok := s.Post(subject, postID)
	if !ok {
		return domain.PageMeta{}, domain.ErrPostNotFound
	}
	desc := post.Description
	if desc == "" {
		desc = BaseTitle + " " + subject.Name() + " " + post.Title
	}
	return domain.PageMeta{Title: post.Title + " - " + subject.Name(), Description: desc}, nil
}

// Routes enumerates every navigable page for static HTML generation.
func (s *Store) Routes() []domain.Route {
	routes := []domain.Route{
		{Path: "/", PageMeta: domain.PageMeta{Description: BaseTitle + " 필기 대비 이론 학습과 문제 풀이"}},
		{Path: "/theory", PageMeta: domain.PageMeta{Title: "이론 학습", Description: BaseTitle + " 과목별 이론 정리"}},
		{Path: "/quiz", PageMeta: domain.PageMeta{Title: "문제 풀이", Description: BaseTitle + " 과목별 기출 및 예상 문제"}},
		{Path: "/wrong-answers", PageMeta: domain.PageMeta{Title: "오답 노트", Description: "틀린 문제를 모아 다시 풀어보세요"}},
		{Path: "/mock-exam", PageMeta: domain.PageMeta{Title: "모의고사", Description: BaseTitle + " 실전 모의고사"}},
	}

	for _, subject := range domain.Subjects() {
		routes = append(routes,
			domain.Route{Path: "/theory/" + string(subject), PageMeta: domain.PageMeta{
				Title:       subject.Name() + " - 이론 학습",
				Description: BaseTitle + " " + subject.Name() + " 이론 정리",
			}},
		)
		meta, _ := s.SubjectMeta(subject)
		routes = append(routes, domain.Route{Path: "/quiz/" + string(subject), PageMeta: meta})
	}

	for _, subject := range domain.Subjects() {
		for _, post := range s.Posts(subject) {
			meta, _ := s.PostMeta(subject, post.ID)
			routes = append(routes, domain.Route{Path: "/theory/" + string(subject) + "/" + post.ID, PageMeta: meta})
		}
	}
	for _, subject := range domain.Subjects() {
		for _, set := range s.ChaptersForSubject(subject) {
			meta, _ := s.ChapterMeta(subject, set.ChapterID)
			routes = append(routes, domain.Route{Path: "/quiz/" + string(subject) + "/" + set.ChapterID, PageMeta: meta})
		}
	}
	return routes
}
