package ingest

import "unicode/utf16"

// Extract maps an event's text and entity spans to its URL and hashtag lists,
// each ordered as the spans appear in the source text. A text-link span
// contributes its embedded target, a plain URL span contributes the literal
// substring at its offset. Events with no entities yield two empty lists;
// that is a normal outcome, not an error.
func Extract(ev *Event) (urls, hashtags []string) {
	if ev == nil || len(ev.Entities) == 0 {
		return nil, nil
	}

	// Spans address UTF-16 code units. Decode once and slice per entity.
	var encoded []uint16
	substring := func(e Entity) string {
		if e.Text != "" {
			return e.Text
		}
		if encoded == nil {
			encoded = utf16.Encode([]rune(ev.Text))
		}
		if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(encoded) {
			return ""
		}
		return string(utf16.Decode(encoded[e.Offset : e.Offset+e.Length]))
	}

	for _, e := range ev.Entities {
		switch e.Kind {
		case EntityURL:
			if u := substring(e); u != "" {
				urls = append(urls, u)
			}
		case EntityTextLink:
			if e.URL != "" {
				urls = append(urls, e.URL)
			}
		case EntityHashtag:
			if tag := substring(e); tag != "" {
				hashtags = append(hashtags, tag)
			}
		case EntityMention, EntityTextMention:
			// Mentions carry no links or tags.
		}
	}
	return urls, hashtags
}
