package trigger

// ruleDef is the on-disk shape of one rule. Unknown fields are ignored.
type ruleDef struct {
	Match   *string     `json:"match" yaml:"match"`
	Pattern *string     `json:"pattern" yaml:"pattern"`
	And     []condDef   `json:"and" yaml:"and"`
	Or      *[]condDef  `json:"or" yaml:"or"`
	Cd      *float64    `json:"cd" yaml:"cd"`
	Out     *string     `json:"out" yaml:"out"`
	Delay   *float64    `json:"delay" yaml:"delay"`
	Set     []assignDef `json:"set" yaml:"set"`
	Cmd     *string     `json:"cmd" yaml:"cmd"`
}

type condDef struct {
	Name  string      `json:"name" yaml:"name"`
	Op    string      `json:"op" yaml:"op"`
	Value interface{} `json:"value" yaml:"value"`
}

type assignDef struct {
	Name  string      `json:"name" yaml:"name"`
	Value interface{} `json:"value" yaml:"value"`
}
