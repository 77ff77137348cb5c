package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models cadence.yml.
type Config struct {
	Shop struct {
		Name string `yaml:"name"`
	} `yaml:"shop"`
	Languages struct {
		Source string `yaml:"source"`
		Target string `yaml:"target"`
	} `yaml:"languages"`
	// Roles a template may reference as "role:<name>" placeholders.
	Roles []string `yaml:"roles"`
	Translation struct {
		Model    string          `yaml:"model"`
		Glossary []GlossaryEntry `yaml:"glossary"`
	} `yaml:"translation"`
}

type GlossaryEntry struct {
	JA string `yaml:"ja"`
	FR string `yaml:"fr"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run cad init or create it from the default template", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets the required structure.
func (c *Config) Validate() error {
	if c.Shop.Name == "" {
		return fmt.Errorf("config.shop.name is required")
	}
	if c.Languages.Source == "" || c.Languages.Target == "" {
		return fmt.Errorf("config.languages.source and target are required")
	}
	if c.Languages.Source == c.Languages.Target {
		return fmt.Errorf("config.languages.source and target must differ")
	}
	if len(c.Roles) == 0 {
		return fmt.Errorf("config.roles is required")
	}
	seen := map[string]bool{}
	for _, role := range c.Roles {
		if role == "" {
			return fmt.Errorf("config.roles contains an empty role")
		}
		if seen[role] {
			return fmt.Errorf("config.roles lists %s twice", role)
		}
		seen[role] = true
	}
	for i, term := range c.Translation.Glossary {
		if term.JA == "" || term.FR == "" {
			return fmt.Errorf("config.translation.glossary[%d] needs both ja and fr", i)
		}
	}
	return nil
}

// KnownRole reports whether a role name is declared in the config.
func (c *Config) KnownRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "cadence.yml")
}

// GenerateDefault returns the default config YAML.
func GenerateDefault(shopName string) string {
	return fmt.Sprintf(defaultTemplate, shopName)
}

// Default returns the default Config struct for a shop.
func Default(shopName string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, shopName))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `shop:
  name: %s

languages:
  source: ja
  target: fr

roles:
  - admin
  - coadmin
  - worker

translation:
  model: gemini-2.5-flash-lite
  glossary:
    - {ja: "仕込み", fr: "Préparation"}
    - {ja: "焼き", fr: "Cuisson"}
    - {ja: "発注", fr: "Commande"}
    - {ja: "買い込み", fr: "Achat"}
    - {ja: "取り置き", fr: "Réservation"}
    - {ja: "レジ締め", fr: "Fermeture de caisse"}
    - {ja: "開店準備", fr: "Préparation ouverture"}
    - {ja: "締め", fr: "Fermeture"}
    - {ja: "受付完了", fr: "Réservation confirmée"}
    - {ja: "受付終了", fr: "Réservation fermée"}
`
