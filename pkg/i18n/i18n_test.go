package i18n

import "testing"

func TestParse(t *testing.T) {
	cases := map[string]Language{
		"zh-TW":          LangZH,
		"zh-CN,zh;q=0.9": LangZH,
		"en-US,en;q=0.8": LangEN,
		"fr":             LangEN,
		"":               LangEN,
	}
	for tag, want := range cases {
		if got := Parse(tag, LangEN); got != want {
			t.Errorf("Parse(%q) = %s, want %s", tag, got, want)
		}
	}
	if got := Parse("de", LangZH); got != LangZH {
		t.Errorf("expected default to be returned, got %s", got)
	}
}

func TestGetIn(t *testing.T) {
	if GetIn(LangZH, "InvalidPosition") != messagesZH.InvalidPosition {
		t.Error("expected zh catalogue")
	}
	if GetIn(LangEN, "NoSuchKey") != "NoSuchKey" {
		t.Error("unknown keys should echo the key")
	}

	SetLanguage(LangZH)
	defer SetLanguage(LangEN)
	if Get("InvalidPosition") != messagesZH.InvalidPosition || GetLanguage() != LangZH {
		t.Error("SetLanguage did not switch the default catalogue")
	}
}
