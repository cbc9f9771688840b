package emails

import "mailaudit/internal/models"

// Thread is a group of emails belonging to the same conversation
type Thread struct {
	ID     string
	Emails []models.Email
}

// GroupByThread groups emails by conversation, in the order threads are first seen.
// An explicit ThreadID wins; otherwise the thread root is resolved through
// References and In-Reply-To, following parents that are part of the input.
// An email without any ids forms a thread of its own.
func GroupByThread(emails []models.Email) []Thread {
	parents := make(map[string]string, len(emails))
	for _, email := range emails {
		id := models.CleanMessageID(email.MessageID)
		if id == "" {
			continue
		}
		if root := email.ThreadRoot(); root != id {
			parents[id] = root
		}
	}

	var threads []Thread
	index := make(map[string]int)
	for _, email := range emails {
		key := email.ThreadID
		if key == "" {
			key = resolveRoot(email.ThreadRoot(), parents)
		}
		if key == "" {
			// no ids to link it to anything else
			threads = append(threads, Thread{ID: "N/A", Emails: []models.Email{email}})
			continue
		}

		i, ok := index[key]
		if !ok {
			i = len(threads)
			index[key] = i
			threads = append(threads, Thread{ID: key})
		}
		threads[i].Emails = append(threads[i].Emails, email)
	}
	return threads
}

func resolveRoot(id string, parents map[string]string) string {
	seen := map[string]struct{}{id: {}}
	for {
		parent, ok := parents[id]
		if !ok {
			return id
		}
		if _, loop := seen[parent]; loop {
			return id
		}
		seen[parent] = struct{}{}
		id = parent
	}
}
