// 本文件用于匹配与知识库状态的 HTTP 处理器 将查询服务通过统一路由暴露给扩展端

// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package api

import (
	"encoding/json"
	"net/http"
)

type matchRequest struct {
	ErrorText string `json:"errorText"`
}

// match 基础档位匹配入口
// 预检请求由外层 CORS 中间件统一应答 到达这里的只有实际请求
func (h *handler) match(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.svc == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "query service is not ready"})
		return
	}
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	out := h.svc.Match(r.Context(), req.ErrorText)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"matches":     out.Matches,
		"kbSource":    out.KBSource,
		"kbUpdatedAt": out.KBUpdatedAt,
	})
}

// matchRefined 精确档位匹配入口 标题精确命中时抑制模糊结果
func (h *handler) matchRefined(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.svc == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "query service is not ready"})
		return
	}
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	out := h.svc.MatchRefined(r.Context(), req.ErrorText)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"matches":     out.Matches,
		"kbSource":    out.KBSource,
		"kbUpdatedAt": out.KBUpdatedAt,
		"debug":       out.Debug,
	})
}

// kbStatus 报告当前会使用的知识库来源与条目数
func (h *handler) kbStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.svc == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "query service is not ready"})
		return
	}
	status := h.svc.Status(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"kbSource":    status.Source,
		"kbUpdatedAt": status.UpdatedAt,
		"count":       status.Count,
	})
}

// kbRefresh 强制失效缓存 下一次查询重新解析来源
func (h *handler) kbRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.svc == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "query service is not ready"})
		return
	}
	status, err := h.svc.Refresh(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"kbSource":    status.Source,
		"kbUpdatedAt": status.UpdatedAt,
		"count":       status.Count,
	})
}
