package i18n

import (
	"reflect"
	"strings"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting         string
	ConfigLoaded     string
	UsingDBPath      string
	ServerListening  string
	ShuttingDown     string
	ConfigLoadFailed string
	DBInitFailed     string
	APIServerError   string

	// Stream
	StreamConnected    string
	StreamDisconnected string

	// TP/SL validation
	InvalidPosition        string
	PriceNotPositive       string
	TakeProfitAboveEntry   string // long
	TakeProfitBelowEntry   string // short
	StopLossBelowEntry     string // long
	StopLossAboveEntry     string // short
	TakeProfitMustBeProfit string
	StopLossMustBeLoss     string
}

var (
	currentLang Language = LangEN
	mu          sync.RWMutex
	messages    *Messages
)

// English messages
var messagesEN = Messages{
	// System
	Starting:         "Starting futures dashboard server...",
	ConfigLoaded:     "Config loaded (Port: %s)",
	UsingDBPath:      "Using DB path: %s",
	ServerListening:  "Server listening on :%s",
	ShuttingDown:     "Shutting down gracefully...",
	ConfigLoadFailed: "Failed to load config: %v",
	DBInitFailed:     "Failed to init database: %v",
	APIServerError:   "API server error: %v",

	// Stream
	StreamConnected:    "Stream connected: %s",
	StreamDisconnected: "Stream disconnected (attempt %d): %v",

	// TP/SL validation
	InvalidPosition:        "Entry price and quantity must be greater than zero",
	PriceNotPositive:       "Trigger price must be greater than zero",
	TakeProfitAboveEntry:   "Take profit price must be above the entry price for a long position",
	TakeProfitBelowEntry:   "Take profit price must be below the entry price for a short position",
	StopLossBelowEntry:     "Stop loss price must be below the entry price for a long position",
	StopLossAboveEntry:     "Stop loss price must be above the entry price for a short position",
	TakeProfitMustBeProfit: "Take profit must be a positive value",
	StopLossMustBeLoss:     "Stop loss must be a negative value",
}

// Chinese messages
var messagesZH = Messages{
	// System
	Starting:         "啟動合約交易看板服務...",
	ConfigLoaded:     "設定已載入（埠號：%s）",
	UsingDBPath:      "使用資料庫路徑：%s",
	ServerListening:  "服務監聽於 :%s",
	ShuttingDown:     "正在優雅關閉...",
	ConfigLoadFailed: "讀取設定失敗：%v",
	DBInitFailed:     "初始化資料庫失敗：%v",
	APIServerError:   "API 伺服器錯誤：%v",

	// Stream
	StreamConnected:    "行情連線已建立：%s",
	StreamDisconnected: "行情連線中斷（第 %d 次）：%v",

	// TP/SL validation
	InvalidPosition:        "開倉價格與數量必須大於零",
	PriceNotPositive:       "觸發價格必須大於零",
	TakeProfitAboveEntry:   "多單止盈價格必須高於開倉價格",
	TakeProfitBelowEntry:   "空單止盈價格必須低於開倉價格",
	StopLossBelowEntry:     "多單止損價格必須低於開倉價格",
	StopLossAboveEntry:     "空單止損價格必須高於開倉價格",
	TakeProfitMustBeProfit: "止盈必須為正值",
	StopLossMustBeLoss:     "止損必須為負值",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	currentLang = lang
	switch lang {
	case LangZH:
		messages = &messagesZH
	default:
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// For returns the catalogue of a specific language without switching the
// process default.
func For(lang Language) *Messages {
	if lang == LangZH {
		return &messagesZH
	}
	return &messagesEN
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	return lookup(M(), key)
}

// GetIn is Get for an explicit language.
func GetIn(lang Language, key string) string {
	return lookup(For(lang), key)
}

func lookup(msg *Messages, key string) string {
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}

// Parse maps a language tag such as "zh-TW" or an Accept-Language header to
// a supported language. Anything unrecognised falls back to def.
func Parse(tag string, def Language) Language {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, ",;"); i >= 0 {
		tag = tag[:i]
	}
	switch {
	case strings.HasPrefix(tag, "zh"):
		return LangZH
	case strings.HasPrefix(tag, "en"):
		return LangEN
	}
	return def
}
