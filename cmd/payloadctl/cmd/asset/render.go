package asset

import (
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/satlaunch/payloadledger/internal/contract"
)

// HistoryTimeFormat renders commit times with the zone abbreviation, e.g. IST.
const HistoryTimeFormat = "2006-01-02 15:04:05 MST"

func assetTable(snaps []contract.Snapshot) pterm.TableData {
	table := pterm.TableData{{"ASSET_ID", "OWNER", "LAUNCHER", "STATE", "FREQUENCY_BAND", "CUBESAT_SIZE", "MASS", "MODIFIED_BY"}}
	for _, s := range snaps {
		if !s.Decoded() {
			table = append(table, []string{s.Key, "-", "-", "UNREADABLE", "-", "-", "-", "-"})
			continue
		}
		a := s.Asset
		table = append(table, []string{
			a.AssetID, a.Owner, a.Launcher, a.State.String(),
			dash(a.FrequencyBand), dash(a.CubesatSize), dash(a.Mass), a.ModifiedBy,
		})
	}
	return table
}

func historyTable(entries []contract.HistoryEntry, loc *time.Location) pterm.TableData {
	table := pterm.TableData{{"TX_ID", "TIMESTAMP", "IS_DELETE", "STATE", "LAUNCHER", "MODIFIED_BY"}}
	for _, e := range entries {
		state, launcher, modifiedBy := "-", "-", "-"
		switch {
		case e.Value.Decoded():
			state = e.Value.Asset.State.String()
			launcher = e.Value.Asset.Launcher
			modifiedBy = e.Value.Asset.ModifiedBy
		case e.Value.Raw != "":
			state = "UNREADABLE"
		}
		table = append(table, []string{
			e.TxID,
			e.Timestamp.In(loc).Format(HistoryTimeFormat),
			strconv.FormatBool(e.IsDelete),
			state, launcher, modifiedBy,
		})
	}
	return table
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
