package twilio

const testDate = "Sat, 11 Feb 2023 02:25:05 +0000"

func messageFixture() map[string]any {
	return map[string]any{
		"body":             "test",
		"num_segments":     0,
		"direction":        "test",
		"date_updated":     testDate,
		"uri":              "test",
		"account_sid":      "test",
		"num_media":        0,
		"to":               "test",
		"date_created":     testDate,
		"status":           "test",
		"sid":              "test",
		"date_sent":        testDate,
		"api_version":      "test",
		"subresource_uris": map[string]any{"media": "test"},
	}
}

func messageFixtureWith(overrides map[string]any) map[string]any {
	m := messageFixture()
	for k, v := range overrides {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	return m
}
