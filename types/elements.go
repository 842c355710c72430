package types

// ElementKind discriminates parsed elements.
type ElementKind string

// Element kinds produced by the decoder.
const (
	KindText               ElementKind = "text"
	KindPrompt             ElementKind = "prompt"
	KindStreamPush         ElementKind = "stream_push"
	KindStreamPop          ElementKind = "stream_pop"
	KindClearStream        ElementKind = "clear_stream"
	KindStreamWindow       ElementKind = "stream_window"
	KindRoundTime          ElementKind = "round_time"
	KindCastTime           ElementKind = "cast_time"
	KindProgressBar        ElementKind = "progress_bar"
	KindIndicator          ElementKind = "indicator"
	KindHand               ElementKind = "hand"
	KindSpell              ElementKind = "spell"
	KindCompass            ElementKind = "compass"
	KindComponentOpen      ElementKind = "component_open"
	KindComponentClose     ElementKind = "component_close"
	KindNav                ElementKind = "nav"
	KindContainerOpen      ElementKind = "container_open"
	KindContainerClear     ElementKind = "container_clear"
	KindContainerItem      ElementKind = "container_item"
	KindDialogOpen         ElementKind = "dialog_open"
	KindDialogClose        ElementKind = "dialog_close"
	KindDialogButtons      ElementKind = "dialog_buttons"
	KindDialogFields       ElementKind = "dialog_fields"
	KindDialogProgressBars ElementKind = "dialog_progress_bars"
	KindDialogLabels       ElementKind = "dialog_labels"
	KindDialogImages       ElementKind = "dialog_images"
	KindEvent              ElementKind = "event"
	KindMenu               ElementKind = "menu"
	KindLaunchURL          ElementKind = "launch_url"
	KindCharacterInfo      ElementKind = "character_info"
	KindOutput             ElementKind = "output"
)

// Element is one decoded unit of a line.
type Element interface {
	Kind() ElementKind
}

// Text is a styled text run.
type Text struct {
	Segment
	// Stream is the decoder's stream register when the run was flushed.
	Stream string
}

// Prompt carries the prompt text and the server time it was sent at.
type Prompt struct {
	Text string
	// Time is the server epoch in seconds; zero when absent.
	Time int64
}

// StreamPush switches the current stream.
type StreamPush struct{ ID string }

// StreamPop returns to the default stream.
type StreamPop struct{}

// ClearStream empties every consumer of a stream.
type ClearStream struct{ ID string }

// StreamWindow announces a stream window and its title.
type StreamWindow struct {
	ID       string
	Title    string
	Subtitle string
}

// RoundTime carries the absolute server end time of the round time.
type RoundTime struct{ End int64 }

// CastTime carries the absolute server end time of the cast time.
type CastTime struct{ End int64 }

// ProgressBar is a vital or other bar update.
type ProgressBar struct {
	ID    string
	Value int
	Max   int
	Text  string
}

// Indicator toggles a status flag.
type Indicator struct {
	ID     string
	Active bool
}

// HandSlot names a hand-like slot.
type HandSlot string

// Hand slots.
const (
	HandLeft  HandSlot = "left"
	HandRight HandSlot = "right"
	HandSpell HandSlot = "spell"
)

// Hand reports the content of a hand slot.
type Hand struct {
	Slot  HandSlot
	Text  string
	Exist string
	Noun  string
}

// Spell reports the prepared spell text.
type Spell struct{ Text string }

// Compass lists the available exits.
type Compass struct{ Dirs []string }

// ComponentOpen starts a structured room component.
type ComponentOpen struct{ ID string }

// ComponentClose ends a structured room component.
type ComponentClose struct{ ID string }

// Nav reports the current room id.
type Nav struct{ RoomID string }

// ContainerOpen announces a container and associates following items with it.
type ContainerOpen struct {
	ID     string
	Title  string
	Expose bool
}

// ContainerClear empties a container.
type ContainerClear struct{ ID string }

// ContainerItem is one item listed in a container.
type ContainerItem struct {
	ContainerID string
	Text        string
}

// DialogOpen opens (or re-titles) a dialog panel.
type DialogOpen struct {
	ID    string
	Title string
}

// DialogClose closes a dialog panel.
type DialogClose struct{ ID string }

// ButtonKind distinguishes dialog button flavours.
type ButtonKind string

// Button kinds.
const (
	ButtonCommand ButtonKind = "command"
	ButtonRadio   ButtonKind = "radio"
	ButtonClose   ButtonKind = "close"
)

// DialogButton is a clickable dialog control.
type DialogButton struct {
	ID      string
	Kind    ButtonKind
	Label   string
	Command string
	Group   string
	Checked bool
}

// DialogField is an edit box, optionally paired with a submit button.
type DialogField struct {
	ID       string
	Value    string
	MaxChars int
	// Button is the id of the paired button; empty renders standalone.
	Button string
	// Explicit is set when the server named the button itself.
	Explicit bool
}

// DialogBar is a progress bar inside a dialog payload.
type DialogBar struct {
	ID    string
	Value int
	Max   int
	Text  string
}

// DialogLabel is static dialog text.
type DialogLabel struct {
	ID    string
	Value string
}

// DialogImage is an image reference.
type DialogImage struct {
	ID   string
	Name string
}

// DialogButtons is the batch of buttons from one payload.
type DialogButtons struct {
	DialogID string
	Clear    bool
	Buttons  []DialogButton
}

// DialogFields is the batch of edit fields from one payload.
type DialogFields struct {
	DialogID string
	Clear    bool
	Fields   []DialogField
}

// DialogProgressBars is the batch of bars from one payload.
type DialogProgressBars struct {
	DialogID string
	Clear    bool
	Bars     []DialogBar
}

// DialogLabels is the batch of labels from one payload.
type DialogLabels struct {
	DialogID string
	Clear    bool
	Labels   []DialogLabel
}

// DialogImages is the batch of images from one payload.
type DialogImages struct {
	DialogID string
	Clear    bool
	Images   []DialogImage
}

// Event is a matched event trigger.
type Event struct {
	Type   string
	Action EventAction
	// Duration in seconds; zero for untimed events.
	Duration float64
	Text     string
}

// MenuItem is one entry of a context menu response.
type MenuItem struct {
	Coord string
	Noun  string
	Text  string
}

// Menu is a collected context menu.
type Menu struct {
	ID    string
	Items []MenuItem
}

// LaunchURL asks the client to open a URL.
type LaunchURL struct{ URL string }

// CharacterInfo names the logged in character.
type CharacterInfo struct {
	Name string
	Game string
}

// Output switches output class, e.g. mono.
type Output struct{ Class string }

func (Text) Kind() ElementKind               { return KindText }
func (Prompt) Kind() ElementKind             { return KindPrompt }
func (StreamPush) Kind() ElementKind         { return KindStreamPush }
func (StreamPop) Kind() ElementKind          { return KindStreamPop }
func (ClearStream) Kind() ElementKind        { return KindClearStream }
func (StreamWindow) Kind() ElementKind       { return KindStreamWindow }
func (RoundTime) Kind() ElementKind          { return KindRoundTime }
func (CastTime) Kind() ElementKind           { return KindCastTime }
func (ProgressBar) Kind() ElementKind        { return KindProgressBar }
func (Indicator) Kind() ElementKind          { return KindIndicator }
func (Hand) Kind() ElementKind               { return KindHand }
func (Spell) Kind() ElementKind              { return KindSpell }
func (Compass) Kind() ElementKind            { return KindCompass }
func (ComponentOpen) Kind() ElementKind      { return KindComponentOpen }
func (ComponentClose) Kind() ElementKind     { return KindComponentClose }
func (Nav) Kind() ElementKind                { return KindNav }
func (ContainerOpen) Kind() ElementKind      { return KindContainerOpen }
func (ContainerClear) Kind() ElementKind     { return KindContainerClear }
func (ContainerItem) Kind() ElementKind      { return KindContainerItem }
func (DialogOpen) Kind() ElementKind         { return KindDialogOpen }
func (DialogClose) Kind() ElementKind        { return KindDialogClose }
func (DialogButtons) Kind() ElementKind      { return KindDialogButtons }
func (DialogFields) Kind() ElementKind       { return KindDialogFields }
func (DialogProgressBars) Kind() ElementKind { return KindDialogProgressBars }
func (DialogLabels) Kind() ElementKind       { return KindDialogLabels }
func (DialogImages) Kind() ElementKind       { return KindDialogImages }
func (Event) Kind() ElementKind              { return KindEvent }
func (Menu) Kind() ElementKind               { return KindMenu }
func (LaunchURL) Kind() ElementKind          { return KindLaunchURL }
func (CharacterInfo) Kind() ElementKind      { return KindCharacterInfo }
func (Output) Kind() ElementKind             { return KindOutput }
