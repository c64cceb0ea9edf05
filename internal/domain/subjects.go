package domain

// Subject identifies one of the five exam subjects.
type Subject string

const (
	SystemSecurity      Subject = "system-security"
	NetworkSecurity     Subject = "network-security"
	ApplicationSecurity Subject = "application-security"
	SecurityGeneral     Subject = "security-general"
	SecurityManagement  Subject = "security-management"
)

var subjectOrder = []Subject{
	SystemSecurity,
	NetworkSecurity,
	ApplicationSecurity,
	SecurityGeneral,
	SecurityManagement,
}

var subjectNames = map[Subject]string{
	SystemSecurity:      "시스템 보안",
	NetworkSecurity:     "네트워크 보안",
	ApplicationSecurity: "어플리케이션 보안",
	SecurityGeneral:     "정보보안 일반",
	SecurityManagement:  "정보보안 관리 및 법규",
}

// Subjects returns every subject in exam order.
func Subjects() []Subject {
	out := make([]Subject, len(subjectOrder))
	copy(out, subjectOrder)
	return out
}

// Name returns the display name, or "" for an unknown subject.
func (s Subject) Name() string {
	return subjectNames[s]
}

// Valid reports whether s is one of the five subjects.
func (s Subject) Valid() bool {
	_, ok := subjectNames[s]
	return ok
}

// ParseSubject validates a raw identifier.
func ParseSubject(raw string) (Subject, error) {
	s := Subject(raw)
	if !s.Valid() {
		return "", ErrSubjectNotFound
	}
	return s, nil
}

// ChapterKey builds the composite "subject/chapter" identifier.
func ChapterKey(subject Subject, chapterID string) string {
	return string(subject) + "/" + chapterID
}
