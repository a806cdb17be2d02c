// 文件路径: internal/support/i18n/i18n.go
// 模块说明: API 错误信息的多语言翻译，内置 en-US 与 zh-CN，可从外部目录覆盖。
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// Manager 管理翻译内容。
type Manager struct {
	defaultLang  string
	translations map[string]map[string]string
	logger       *slog.Logger
	mu           sync.RWMutex

	// 与 langs 一一对应，langs[0] 为默认语言。
	langs   []string
	matcher language.Matcher
}

// Option 用于配置 Manager。
type Option func(*Manager)

// WithLogger 设置 Manager 使用的日志实例。
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDefaultLang 设置默认语言。
func WithDefaultLang(lang string) Option {
	return func(m *Manager) {
		if lang = strings.TrimSpace(lang); lang != "" {
			m.defaultLang = canonical(lang)
		}
	}
}

// NewManager 创建 i18n Manager 并加载内置语言包。
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		defaultLang:  "en-US",
		translations: make(map[string]map[string]string),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	sub, err := fs.Sub(embeddedLocales, "locales")
	if err != nil {
		return nil, fmt.Errorf("open embedded locales: %w", err)
	}
	if err := m.load(sub, true); err != nil {
		return nil, err
	}
	if _, ok := m.translations[m.defaultLang]; !ok {
		return nil, fmt.Errorf("default language %q has no locale file / 默认语言缺少语言包", m.defaultLang)
	}
	m.rebuildMatcher()
	return m, nil
}

// LoadFromDir 从外部目录加载翻译文件，同名键覆盖内置内容。目录不存在时忽略。
func (m *Manager) LoadFromDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat locales dir: %w", err)
	}
	if err := m.load(os.DirFS(filepath.Clean(dir)), false); err != nil {
		return err
	}
	m.rebuildMatcher()
	return nil
}

// load 读取 fsys 根目录下的 *.json。strict 为 false 时跳过损坏文件。
func (m *Manager) load(fsys fs.FS, strict bool) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read locales directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		lang := canonical(strings.TrimSuffix(entry.Name(), ".json"))
		data, err := fs.ReadFile(fsys, entry.Name())
		if err == nil {
			var content map[string]string
			if err = json.Unmarshal(data, &content); err == nil {
				m.merge(lang, content)
				continue
			}
		}
		if strict {
			return fmt.Errorf("load locale file %s: %w", entry.Name(), err)
		}
		m.logger.Warn("skip locale file", "file", entry.Name(), "error", err)
	}
	return nil
}

func (m *Manager) merge(lang string, content map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.translations[lang]; !ok {
		m.translations[lang] = make(map[string]string, len(content))
	}
	maps.Copy(m.translations[lang], content)
}

func (m *Manager) rebuildMatcher() {
	m.mu.Lock()
	defer m.mu.Unlock()
	langs := []string{m.defaultLang}
	for _, lang := range slices.Sorted(maps.Keys(m.translations)) {
		if lang != m.defaultLang {
			langs = append(langs, lang)
		}
	}
	tags := make([]language.Tag, 0, len(langs))
	for _, lang := range langs {
		tags = append(tags, language.Make(lang))
	}
	m.langs = langs
	m.matcher = language.NewMatcher(tags)
}

// Negotiate 将 Accept-Language 形式的字符串匹配到已加载的语言，无法匹配时返回默认语言。
func (m *Manager) Negotiate(accept string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 || m.matcher == nil {
		return m.defaultLang
	}
	_, idx, confidence := m.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(m.langs) {
		return m.defaultLang
	}
	return m.langs[idx]
}

// Translate 按语言与键名返回翻译内容，缺失时回退到默认语言，再回退为 key 本身。
func (m *Manager) Translate(lang, key string, args ...any) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, candidate := range []string{canonical(lang), m.defaultLang} {
		if val, ok := m.translations[candidate][key]; ok {
			if len(args) > 0 {
				return fmt.Sprintf(val, args...)
			}
			return val
		}
	}
	return key
}

// DefaultLanguage 返回默认语言。
func (m *Manager) DefaultLanguage() string {
	return m.defaultLang
}

// GetSupportedLanguages 返回支持的语言列表，按字母排序。
func (m *Manager) GetSupportedLanguages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.translations))
}

// GetTranslations 返回指定语言的完整翻译表副本。
func (m *Manager) GetTranslations(lang string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if trans, ok := m.translations[canonical(lang)]; ok {
		return maps.Clone(trans)
	}
	return nil
}

// canonical 规范化语言标签，例如 zh-cn -> zh-CN。
func canonical(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return lang
	}
	return tag.String()
}
