package client

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"

	"tuss-cogs/internal/game"
	"tuss-cogs/internal/models"
	"tuss-cogs/internal/network"
)

const (
	cellWidth  = 8
	listWidth  = 34
	maxListed  = 6
	hpBarWidth = 20
)

var pieceGlyphs = map[models.PieceCode]rune{
	models.PieceEmpty:   '.',
	models.PieceTrigger: 'T',
	models.PieceCog:     'o',
	models.PieceMadars:  'M',
	models.PieceJanka:   'J',
	models.PieceRoberts: 'R',
	models.PieceOzols:   'O',
}

var pieceTable = models.DefaultPieceTable()

func pieceName(code models.PieceCode) string {
	if spec, ok := pieceTable.Lookup(code); ok {
		return string(spec.Sprite)
	}
	return fmt.Sprintf("piece %d", code)
}

func pieceGlyph(code models.PieceCode) rune {
	if g, ok := pieceGlyphs[code]; ok {
		return g
	}
	return '?'
}

// rotationGlyph draws a quarter-turn angle in degrees as | or -.
func rotationGlyph(deg int) rune {
	if (deg/90)%2 == 0 {
		return '|'
	}
	return '-'
}

// cellLabel is the fixed-width text of one grid cell.
func cellLabel(c game.CellView) string {
	var label string
	switch {
	case c.Code == models.PieceEmpty:
		label = " ."
	case c.Code == models.PieceTrigger:
		label = " T"
	case c.Charge > 0 || pieceTable[c.Code].Charged():
		label = fmt.Sprintf(" %c%c%3d%%", pieceGlyph(c.Code), rotationGlyph(c.Rotation), int(c.Charge*100))
	default:
		label = fmt.Sprintf(" %c%c", pieceGlyph(c.Code), rotationGlyph(c.Rotation))
	}
	return runewidth.FillRight(label, cellWidth)
}

func hpBar(hp, maxHP, width int) string {
	if maxHP <= 0 {
		maxHP = 1
	}
	if hp < 0 {
		hp = 0
	}
	filled := hp * width / maxHP
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", width-filled) + "]"
}

func unitLine(u game.Unit) string {
	line := fmt.Sprintf("%-9s hp %4.1f/%-4.1f @%3.0f,%3.0f", u.Sprite, u.HP, u.MaxHP, u.X, u.Y)
	return runewidth.Truncate(line, listWidth, "…")
}

// input tracks the cursor and the selected shop slot between key presses.
type input struct {
	cursor   int
	selected int // Shop slot, -1 when none
}

// handle turns a key press into a command. quit is set when the player leaves.
func (in *input) handle(key termbox.Key, ch rune, snap game.Snapshot) (cmd *network.ClientMessage, quit bool, err error) {
	cols := snap.Columns
	if cols <= 0 {
		cols = 1
	}
	cells := len(snap.Cells)

	switch key {
	case termbox.KeyArrowLeft:
		if in.cursor%cols > 0 {
			in.cursor--
		}
		return nil, false, nil
	case termbox.KeyArrowRight:
		if in.cursor%cols < cols-1 && in.cursor+1 < cells {
			in.cursor++
		}
		return nil, false, nil
	case termbox.KeyArrowUp:
		if in.cursor-cols >= 0 {
			in.cursor -= cols
		}
		return nil, false, nil
	case termbox.KeyArrowDown:
		if in.cursor+cols < cells {
			in.cursor += cols
		}
		return nil, false, nil
	case termbox.KeyEsc:
		if in.selected >= 0 {
			in.selected = -1
			return nil, false, nil
		}
		msg, err := network.NewClientMessage(network.MsgTypeQuit, nil)
		return &msg, true, err
	case termbox.KeyEnter:
		if in.selected < 0 {
			return nil, false, nil
		}
		msg, err := network.NewClientMessage(network.MsgTypePlaceOffer, network.PlaceOfferCommand{Slot: in.selected, Cell: in.cursor})
		in.selected = -1
		return &msg, false, err
	}

	switch {
	case ch >= '1' && ch < '1'+rune(game.ShopSlots):
		if slot := int(ch - '1'); slot < len(snap.Offers) {
			in.selected = slot
		}
	case ch == 'c':
		msg, err := network.NewClientMessage(network.MsgTypePlacePiece, network.PlacePieceCommand{Cell: in.cursor, Code: models.PieceCog})
		return &msg, false, err
	case ch == 'x':
		msg, err := network.NewClientMessage(network.MsgTypeRemovePiece, network.RemovePieceCommand{Cell: in.cursor})
		return &msg, false, err
	case ch == 's':
		msg, err := network.NewClientMessage(network.MsgTypeStart, nil)
		return &msg, false, err
	}
	return nil, false, nil
}

// TermboxUI draws the game and turns key presses into commands.
type TermboxUI struct {
	client *Client
	input  input
}

// NewTermboxUI creates a UI playing through c.
func NewTermboxUI(c *Client) *TermboxUI {
	return &TermboxUI{client: c, input: input{selected: -1}}
}

// Init initializes the termbox screen.
func (ui *TermboxUI) Init() error {
	return termbox.Init()
}

// Close closes the termbox screen.
func (ui *TermboxUI) Close() {
	termbox.Close()
}

// Refresh asks the event loop to redraw. Safe from any goroutine.
func (ui *TermboxUI) Refresh() {
	termbox.Interrupt()
}

// Run draws and handles keys until the player quits.
func (ui *TermboxUI) Run() error {
	ui.Render()
	for {
		switch ev := termbox.PollEvent(); ev.Type {
		case termbox.EventKey:
			snap, _ := ui.client.View().Snapshot()
			cmd, quit, err := ui.input.handle(ev.Key, ev.Ch, snap)
			if err == nil && cmd != nil {
				err = ui.client.SendMessage(*cmd)
			}
			if err != nil {
				ui.client.View().Note("Error: " + err.Error())
			}
			if quit {
				return nil
			}
			ui.Render()
		case termbox.EventInterrupt, termbox.EventResize:
			ui.Render()
		case termbox.EventError:
			return ev.Err
		}
	}
}

func drawText(x, y int, text string, fg, bg termbox.Attribute) int {
	for _, r := range text {
		termbox.SetCell(x, y, r, fg, bg)
		x += runewidth.RuneWidth(r)
	}
	return x
}

// Render draws the whole screen from the current view.
func (ui *TermboxUI) Render() {
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	defer termbox.Flush()

	view := ui.client.View()
	snap, ok := view.Snapshot()
	if !ok {
		drawText(1, 1, "Waiting for the server...", termbox.ColorWhite, termbox.ColorDefault)
		return
	}

	drawText(1, 0, fmt.Sprintf("Level %d  Wave %d/%d  %s  phase %s  coins %d",
		snap.Level, snap.Wave, snap.TotalWaves, snap.State, snap.Phase, snap.Coins), termbox.ColorWhite, termbox.ColorDefault)
	hpColor := termbox.ColorGreen
	if snap.BaseHP*3 <= snap.MaxBaseHP {
		hpColor = termbox.ColorRed
	}
	x := drawText(1, 1, "Base ", termbox.ColorWhite, termbox.ColorDefault)
	x = drawText(x, 1, hpBar(snap.BaseHP, snap.MaxBaseHP, hpBarWidth), hpColor, termbox.ColorDefault)
	drawText(x+1, 1, fmt.Sprintf("%d/%d  enemies left %d", snap.BaseHP, snap.MaxBaseHP, snap.EnemiesRemaining), termbox.ColorWhite, termbox.ColorDefault)

	y := 3
	cols := snap.Columns
	if cols <= 0 {
		cols = 1
	}
	for i, c := range snap.Cells {
		fg, bg := termbox.ColorWhite, termbox.ColorDefault
		switch {
		case i == ui.input.cursor:
			fg, bg = termbox.ColorBlack, termbox.ColorYellow
		case c.Code == models.PieceTrigger:
			fg = termbox.ColorMagenta
		case c.Code != models.PieceEmpty:
			fg = termbox.ColorCyan
		}
		drawText(1+(i%cols)*cellWidth, y+i/cols, cellLabel(c), fg, bg)
	}
	y += (len(snap.Cells)+cols-1)/cols + 1

	x = drawText(1, y, "Shop:", termbox.ColorWhite, termbox.ColorDefault)
	for i, o := range snap.Offers {
		label := fmt.Sprintf(" [%d] %s %dc", i+1, pieceName(o.Code), o.Price)
		fg, bg := termbox.ColorGreen, termbox.ColorDefault
		switch {
		case o.Used:
			fg = termbox.ColorBlue
			label += " (sold)"
		case i == ui.input.selected:
			fg, bg = termbox.ColorBlack, termbox.ColorGreen
		}
		x = drawText(x, y, label, fg, bg)
	}
	y += 2

	drawText(1, y, "Friends", termbox.ColorGreen, termbox.ColorDefault)
	drawText(1+listWidth+2, y, "Enemies", termbox.ColorRed, termbox.ColorDefault)
	for i := 0; i < maxListed; i++ {
		if i < len(snap.Friends) {
			drawText(1, y+1+i, unitLine(snap.Friends[i]), termbox.ColorWhite, termbox.ColorDefault)
		}
		if i < len(snap.Enemies) {
			drawText(1+listWidth+2, y+1+i, unitLine(snap.Enemies[i]), termbox.ColorWhite, termbox.ColorDefault)
		}
	}
	y += maxListed + 2

	for i, line := range view.Events() {
		drawText(1, y+i, line, termbox.ColorYellow, termbox.ColorDefault)
	}
	y += maxEventLines + 1

	help := "arrows move  1-3 pick offer  Enter place  c cog  x remove  s start  Esc quit"
	if snap.Outcome != nil {
		help = "The level is over. Esc to leave."
	}
	drawText(1, y, help, termbox.ColorCyan, termbox.ColorDefault)
}
