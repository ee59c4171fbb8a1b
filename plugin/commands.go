// Package plugin defines the boundary with the backend of record: the
// commands the editor core emits, the Backend interface they travel through
// and the transports implementing it. The core never persists anything
// itself - durability is always one of these commands.
package plugin

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"blockpad/block"
)

// Outbound command names, one per structural edit operation plus the
// trailing persist issued once per successful drain.
const (
	CmdUpdateBlock          = "update_block"
	CmdAddBlock             = "add_block"
	CmdRemoveBlock          = "remove_block"
	CmdSplitBlock           = "split_block"
	CmdMergeBlock           = "merge_block"
	CmdReorderBlock         = "reorder_block"
	CmdPairBlocks           = "pair_blocks"
	CmdUnpairBlocks         = "unpair_blocks"
	CmdIndentListItem       = "indent_list_item"
	CmdOutdentListItem      = "outdent_list_item"
	CmdUpdateListItem       = "update_list_item"
	CmdAddTableRow          = "add_table_row"
	CmdRemoveTableRow       = "remove_table_row"
	CmdAddTableColumn       = "add_table_column"
	CmdRemoveTableColumn    = "remove_table_column"
	CmdSortTableColumn      = "sort_table_column"
	CmdUpdateTableCell      = "update_table_cell"
	CmdSetColumnWidths      = "set_column_widths"
	CmdToggleTableHeader    = "toggle_table_header"
	CmdToggleTableAltRows   = "toggle_table_alternating_rows"
	CmdUpdateImageURL       = "update_image_url"
	CmdUpdateImageAlt       = "update_image_alt"
	CmdUpdateImageAlign     = "update_image_align"
	CmdUpdateImageWidth     = "update_image_width"
	CmdMovePage             = "move_page"
	CmdSavePage             = "save_page"
)

// Command is one outbound edit. Commands drain to the backend strictly in
// enqueue order; IDs are ULIDs monotonic within the process so the backend
// can detect reordering or duplication on its side.
type Command struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Args     json.RawMessage `json:"args"`
	Enqueued time.Time       `json:"-"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewCommand creates a command stamping it with a fresh monotonic id.
// Argument marshalling failures are impossible for our own arg types, so
// they panic instead of returning an error nobody can act on.
func NewCommand(name string, args any) Command {
	data, err := json.Marshal(args)
	if err != nil {
		panic(fmt.Sprintf("unable to marshal %s args: %v", name, err))
	}
	now := time.Now()
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(now), entropy)
	entropyMu.Unlock()
	return Command{
		ID:       id.String(),
		Name:     name,
		Args:     data,
		Enqueued: now,
	}
}

// Argument payloads, one struct per command family. PageID is carried by
// every command so the backend never has to track which page a connection
// is editing.

type TextArgs struct {
	PageID  string `json:"page_id"`
	BlockID string `json:"block_id"`
	Text    string `json:"text"`
}

// SplitArgs carry the source block's final text alongside the seed of the
// new block, so a pending text edit folds into the split instead of needing
// its own update command.
type SplitArgs struct {
	PageID     string `json:"page_id"`
	BlockID    string `json:"block_id"`
	NewBlockID string `json:"new_block_id"`
	Text       string `json:"text"`
	AfterText  string `json:"after_text"`
}

// MergeArgs carry the predecessor's final concatenated text for the same
// reason SplitArgs carry the source text.
type MergeArgs struct {
	PageID  string `json:"page_id"`
	BlockID string `json:"block_id"`
	Text    string `json:"text"`
}

type BlockArgs struct {
	PageID  string `json:"page_id"`
	BlockID string `json:"block_id"`
}

type AddBlockArgs struct {
	PageID string       `json:"page_id"`
	Block  *block.Block `json:"block"`
	After  string       `json:"after,omitempty"`
}

type ReorderArgs struct {
	PageID   string `json:"page_id"`
	BlockID  string `json:"block_id"`
	TargetID string `json:"target_id"`
	Position string `json:"position"`
}

type PairArgs struct {
	PageID string `json:"page_id"`
	BlockA string `json:"block_a"`
	BlockB string `json:"block_b"`
	PairID string `json:"pair_id"`
}

type UnpairArgs struct {
	PageID string `json:"page_id"`
	PairID string `json:"pair_id"`
}

type ListItemArgs struct {
	PageID  string `json:"page_id"`
	BlockID string `json:"block_id"`
	ItemID  string `json:"item_id"`
	Text    string `json:"text,omitempty"`
	Checked *bool  `json:"checked,omitempty"`
}

type TableRowArgs struct {
	PageID  string `json:"page_id"`
	BlockID string `json:"block_id"`
	RowID   string `json:"row_id,omitempty"`
	At      int    `json:"at,omitempty"`
}

type TableColumnArgs struct {
	PageID  string `json:"page_id"`
	BlockID string `json:"block_id"`
	At      int    `json:"at"`
}

type TableCellArgs struct {
	PageID  string `json:"page_id"`
	BlockID string `json:"block_id"`
	RowID   string `json:"row_id"`
	CellID  string `json:"cell_id"`
	Text    string `json:"text"`
}

type SortTableArgs struct {
	PageID     string `json:"page_id"`
	BlockID    string `json:"block_id"`
	Column     int    `json:"column"`
	Descending bool   `json:"descending,omitempty"`
}

type ColumnWidthsArgs struct {
	PageID  string    `json:"page_id"`
	BlockID string    `json:"block_id"`
	Widths  []float64 `json:"widths"`
}

type ImageValueArgs struct {
	PageID  string `json:"page_id"`
	BlockID string `json:"block_id"`
	Value   string `json:"value"`
}

type ImageWidthArgs struct {
	PageID  string `json:"page_id"`
	BlockID string `json:"block_id"`
	Width   *int   `json:"width"`
}

type MovePageArgs struct {
	PageID   string `json:"page_id"`
	TargetID string `json:"target_id"`
	Position string `json:"position"`
}

type SaveArgs struct {
	PageID string `json:"page_id"`
}
