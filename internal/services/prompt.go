package services

import (
	"strings"

	types "github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain"
)

// FallbackReply replaces an empty model reply.
const FallbackReply = "Desculpe, não consegui processar sua mensagem."

const chatPreamble = `Você é o ArtVision, um assistente especialista em história da arte.
Responda sempre em português, de forma clara, acolhedora e didática.
Fale sobre artistas, obras, estilos, movimentos, técnicas e contexto histórico.
Quando não tiver certeza de uma informação, diga isso explicitamente em vez de inventar.
Se o usuário perguntar algo fora do universo da arte, responda brevemente e traga a conversa de volta para a arte.`

const analysisInstruction = `Você é um especialista em história da arte. Analise esta imagem de obra de arte e retorne um JSON com:
{
  "style": "nome do estilo/movimento artístico",
  "artist": "nome provável do artista",
  "period": "período histórico",
  "ocrText": "texto detectado na imagem (se houver)",
  "aiDescription": "descrição detalhada da obra (2-3 frases)",
  "confidence": {
    "style": número entre 0 e 1,
    "artist": número entre 0 e 1
  }
}

Baseie-se nestes movimentos: Renascimento, Barroco, Neoclassicismo, Romantismo, Realismo, Impressionismo, Pós-Impressionismo, Expressionismo, Cubismo, Surrealismo, Modernismo, Arte Contemporânea.

Responda APENAS com o JSON, sem texto adicional.`

// HistoryEntry is one prior turn used as prompt context.
type HistoryEntry struct {
	Role    types.MessageRole `json:"role"`
	Content string            `json:"content"`
}

func speakerLabel(role types.MessageRole) string {
	if role == types.RoleUser {
		return "Usuário"
	}
	return "ArtVision"
}

// BuildChatPrompt renders the preamble, the optional history block and the new
// user message, ending with the assistant cue.
func BuildChatPrompt(history []HistoryEntry, message string) string {
	var b strings.Builder
	b.WriteString(chatPreamble)
	b.WriteString("\n\n")

	if len(history) > 0 {
		lines := make([]string, 0, len(history))
		for _, h := range history {
			lines = append(lines, speakerLabel(h.Role)+": "+h.Content)
		}
		b.WriteString("Histórico da conversa:\n")
		b.WriteString(strings.Join(lines, "\n\n"))
		b.WriteString("\n\n")
	}

	b.WriteString("Usuário: ")
	b.WriteString(message)
	b.WriteString("\n\nArtVision:")
	return b.String()
}

func historyFromMessages(msgs []*types.Message) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return out
}
