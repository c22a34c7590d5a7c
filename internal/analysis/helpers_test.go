package analysis

import (
	"time"

	"mipwatch/internal/snapshot/models"
)

func day(s string) time.Time {
	t, err := models.ParsePublishDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func key(name string) models.EntityKey {
	return models.EntityKey{Name: name, Vendor: "Vendor " + name, Standard: "FIPS 140-3"}
}

func obs(date string, k models.EntityKey, raw string) models.Observation {
	return models.Observation{PublishDate: day(date), Key: k, RawStatus: raw}
}

func snapshotOf(date string, statuses map[models.EntityKey]string) Snapshot {
	return Snapshot{Date: day(date), Statuses: statuses}
}

func mustCorpus(observations ...models.Observation) *Corpus {
	c, err := NewCorpus(nil, observations)
	if err != nil {
		panic(err)
	}
	return c
}

func entries(dates []string, statuses []string) History {
	h := make(History, len(dates))
	for i := range dates {
		h[i] = HistoryEntry{Date: day(dates[i]), Status: statuses[i], RawStatus: statuses[i]}
	}
	return h
}
