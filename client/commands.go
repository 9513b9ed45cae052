package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wfunc/tysiac/room"
	"github.com/wfunc/tysiac/services"
)

const usage = `commands:
  list | winner | state
  create <name> <nickname> [players] [ffa|teams] [musik]
  join <code|roomId> <nickname>
  team <A|B> | teamname <A|B> <name> | ready | unready | start
  bid <amount> | pass | give <cardId> <playerId> | meld <suit> | play <cardId>
  leave | delete
  raw <action> <json>
`

// parseCommand turns one input line into an action request for roomID.
func parseCommand(line, roomID string) (services.Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return services.Request{}, fmt.Errorf("empty command")
	}
	cmd, args := fields[0], fields[1:]
	data := map[string]interface{}{}
	if roomID != "" {
		data["roomId"] = roomID
	}

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d argument(s), see help", cmd, n)
		}
		return nil
	}

	var action string
	switch cmd {
	case "list":
		action = services.ActionListRooms
	case "winner":
		action = services.ActionLastWinner
	case "state":
		action = services.ActionGetRoom
	case "create":
		if err := need(2); err != nil {
			return services.Request{}, err
		}
		action = services.ActionCreateRoom
		data = map[string]interface{}{"name": args[0], "nickname": args[1], "maxPlayers": 4}
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return services.Request{}, fmt.Errorf("players must be a number")
			}
			data["maxPlayers"] = n
		}
		if len(args) > 3 {
			data["gameMode"] = args[3]
		}
		data["withMusik"] = len(args) > 4 && args[4] == "musik"
	case "join":
		if err := need(2); err != nil {
			return services.Request{}, err
		}
		action = services.ActionJoinRoom
		data = map[string]interface{}{"nickname": args[1]}
		if len(args[0]) == 6 {
			data["code"] = args[0]
		} else {
			data["roomId"] = args[0]
		}
	case "team":
		if err := need(1); err != nil {
			return services.Request{}, err
		}
		action = services.ActionSelectTeam
		data["team"] = strings.ToUpper(args[0])
	case "teamname":
		if err := need(2); err != nil {
			return services.Request{}, err
		}
		action = services.ActionUpdateTeamName
		data["team"] = strings.ToUpper(args[0])
		data["name"] = strings.Join(args[1:], " ")
	case "ready", "unready":
		action = services.ActionSetReady
		data["isReady"] = cmd == "ready"
	case "start":
		action = services.ActionStartGame
	case "bid":
		if err := need(1); err != nil {
			return services.Request{}, err
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil {
			return services.Request{}, fmt.Errorf("bid must be a number")
		}
		action = services.ActionBid
		data["amount"] = amount
	case "pass":
		action = services.ActionPass
	case "give":
		if err := need(2); err != nil {
			return services.Request{}, err
		}
		action = services.ActionGiveCard
		data["cardId"] = args[0]
		data["toPlayerId"] = args[1]
	case "meld":
		if err := need(1); err != nil {
			return services.Request{}, err
		}
		action = services.ActionDeclareMeld
		data["suit"] = strings.ToLower(args[0])
	case "play":
		if err := need(1); err != nil {
			return services.Request{}, err
		}
		action = services.ActionPlayCard
		data["cardId"] = args[0]
	case "leave":
		action = services.ActionLeaveRoom
	case "delete":
		action = services.ActionDeleteRoom
	case "raw":
		if err := need(1); err != nil {
			return services.Request{}, err
		}
		req := services.Request{Action: args[0]}
		if len(args) > 1 {
			raw := json.RawMessage(strings.Join(args[1:], " "))
			if !json.Valid(raw) {
				return services.Request{}, fmt.Errorf("raw data is not valid JSON")
			}
			req.Data = raw
		}
		return req, nil
	default:
		return services.Request{}, fmt.Errorf("unknown command %q, see help", cmd)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return services.Request{}, err
	}
	return services.Request{Action: action, Data: raw}, nil
}

// render prints a short table summary from the player's point of view.
func render(v room.View, playerID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s [%s] round %d, %s/%s", v.Name, v.Code, v.RoundNumber, v.Status, v.Phase)
	if v.CurrentTrump != nil {
		fmt.Fprintf(&b, ", trump %s", *v.CurrentTrump)
	}
	if v.CurrentBid > 0 {
		fmt.Fprintf(&b, ", bid %d", v.CurrentBid)
	}
	b.WriteString("\n")
	for _, p := range v.Players {
		marker := " "
		if p.IsCurrentTurn {
			marker = "*"
		}
		fmt.Fprintf(&b, " %s %d %-12s total=%-4d round=%-3d cards=%d", marker, p.Position, p.Nickname, p.TotalScore, p.RoundScore, p.CardCount)
		if p.Team != room.TeamNone {
			fmt.Fprintf(&b, " team=%s", p.Team)
		}
		if p.Passed {
			b.WriteString(" passed")
		}
		b.WriteString("\n")
		if p.PlayerID == playerID {
			ids := make([]string, 0, len(p.Cards))
			for _, c := range p.Cards {
				ids = append(ids, c.ID)
			}
			fmt.Fprintf(&b, "   hand: %s\n", strings.Join(ids, " "))
		}
	}
	if len(v.CurrentTrick) > 0 {
		plays := make([]string, 0, len(v.CurrentTrick))
		for _, t := range v.CurrentTrick {
			plays = append(plays, t.Card.ID)
		}
		fmt.Fprintf(&b, "   trick: %s\n", strings.Join(plays, " "))
	}
	if len(v.Playable) > 0 {
		fmt.Fprintf(&b, "   playable: %s\n", strings.Join(v.Playable, " "))
	}
	for _, m := range v.AvailableMelds {
		fmt.Fprintf(&b, "   meld %s for %d\n", m.Suit, m.Points)
	}
	if len(v.PendingGives) > 0 {
		fmt.Fprintf(&b, "   waiting for cards: %s\n", strings.Join(v.PendingGives, " "))
	}
	if v.Winner != nil {
		fmt.Fprintf(&b, "   winner: %s with %d\n", v.Winner.Name, v.Winner.Score)
	}
	return b.String()
}
